package extraction

import (
	"go.uber.org/zap"
)

// Extractor combines the marker and heuristic paths: explicit markers win;
// the heuristic tables run only when a text block carries no markers at all.
type Extractor struct {
	marker    *MarkerExtractor
	heuristic *HeuristicExtractor
}

// NewExtractor creates the combined extractor.
func NewExtractor(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		marker:    NewMarkerExtractor(logger.Named("marker")),
		heuristic: NewHeuristicExtractor(logger.Named("heuristic")),
	}
}

// Extract produces candidates from one text block.
func (e *Extractor) Extract(text string) []Candidate {
	if HasMarkers(text) {
		return e.marker.Extract(text)
	}
	return e.heuristic.Extract(text)
}

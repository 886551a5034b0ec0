package knowledge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyTopic(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Use Postgres with a normalized schema", "database"},
		{"Switch to JWT for authentication", "authentication"},
		{"Expose a REST endpoint for search", "api"},
		{"Add coverage for the parser tests", "testing"},
		{"Deploy via docker compose in CI", "deployment"},
		{"Cache results with a short TTL", "caching"},
		{"Wrap errors and add retry with backoff", "error-handling"},
		{"Pin the dependency version bump", "dependencies"},
		{"Something entirely unrelated", "general"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyTopic(tt.text))
		})
	}
}

func TestClassifyTopicFirstMatchWins(t *testing.T) {
	// Mentions both architecture and database; architecture rule is
	// earlier in the table.
	got := ClassifyTopic("The architecture should isolate the database layer")
	assert.Equal(t, "architecture", got)
}

func TestDeriveName(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Always use kebab-case for file names", "kebabcase-file-names"},
		{"We should prefer small focused interfaces", "prefer-small-focused-interfaces"},
		{"the a an of", "pattern"},
		{"", "pattern"},
		{"2x faster builds via caching layers everywhere", "x-faster-builds-via"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DeriveName(tt.text), "input %q", tt.text)
	}
}

func TestDeriveNameTruncates(t *testing.T) {
	name := DeriveName("extraordinarily comprehensive verbosity maximization methodology everywhere")
	assert.LessOrEqual(t, len(name), 50)
	assert.False(t, strings.HasSuffix(name, "-"))
}

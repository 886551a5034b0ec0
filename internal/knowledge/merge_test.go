package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeSessionOverwriteByKey(t *testing.T) {
	prior := []Record{
		&Decision{ID: "d1", Topic: "db", Decision: "Use SQLite", SessionID: "s1"},
		&Pattern{ID: "p1", Name: "naming", Description: "kebab-case files", SessionID: "s1"},
	}
	next := []Record{
		&Decision{ID: "d2", Topic: "db", Decision: "Use Postgres", SessionID: "s1"},
		&Insight{ID: "i1", Content: "WAL mode is faster", SessionID: "s1"},
	}

	merged := MergeSession(prior, next)
	require.Len(t, merged, 3)

	// Exactly one db decision, and it carries the later text.
	var dbDecisions []*Decision
	for _, rec := range merged {
		if d, ok := rec.(*Decision); ok && d.Topic == "db" {
			dbDecisions = append(dbDecisions, d)
		}
	}
	require.Len(t, dbDecisions, 1)
	assert.Equal(t, "Use Postgres", dbDecisions[0].Decision)

	// Position of the overwritten key is stable.
	assert.Equal(t, TypeDecision, merged[0].Kind())
	assert.Equal(t, TypePattern, merged[1].Kind())
	assert.Equal(t, TypeInsight, merged[2].Kind())
}

func TestMergeSessionKeysAreTypeScoped(t *testing.T) {
	prior := []Record{
		&Decision{ID: "d1", Topic: "general", Decision: "x", SessionID: "s1"},
	}
	next := []Record{
		&Pattern{ID: "p1", Name: "general", Description: "y", SessionID: "s1"},
	}

	merged := MergeSession(prior, next)
	assert.Len(t, merged, 2)
}

func TestMergeSessionEmptyPrior(t *testing.T) {
	next := []Record{
		&Task{ID: "t1", Title: "Do it", Status: TaskPending, SessionCreated: "s1"},
	}
	merged := MergeSession(nil, next)
	require.Len(t, merged, 1)
	assert.Equal(t, "t1", merged[0].RecordID())
}

func TestMergeSessionTaskTitleNormalized(t *testing.T) {
	prior := []Record{
		&Task{ID: "t1", Title: "Fix the   Parser", Status: TaskPending, SessionCreated: "s1"},
	}
	next := []Record{
		&Task{ID: "t2", Title: "fix the parser", Status: TaskCompleted, SessionCreated: "s1"},
	}

	merged := MergeSession(prior, next)
	require.Len(t, merged, 1)
	assert.Equal(t, "t2", merged[0].RecordID())
}

package actionclass_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/colonyforge/core/internal/actionclass"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		tool string
		want actionclass.Class
	}{
		{"read_file", actionclass.ReadOnly},
		{"list_branches", actionclass.ReadOnly},
		{"write_file", actionclass.Reversible},
		{"git_commit", actionclass.Reversible},
		{"delete_bucket", actionclass.Irreversible},
		{"force_push", actionclass.Irreversible},
		{"unknown_tool_xyz", actionclass.Reversible},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, actionclass.Classify(c.tool, nil), c.tool)
	}
}

func TestClassifyOverride(t *testing.T) {
	got := actionclass.Classify("delete_bucket", map[string]any{"action_class": "read_only"})
	assert.Equal(t, actionclass.ReadOnly, got)

	got = actionclass.Classify("delete_bucket", map[string]any{"action_class": "bogus"})
	assert.Equal(t, actionclass.Irreversible, got, "invalid override falls back to inference")
}

func TestRequiresConfirmation(t *testing.T) {
	assert.True(t, actionclass.RequiresConfirmation(actionclass.ProposeConfirm, actionclass.Irreversible))
	assert.False(t, actionclass.RequiresConfirmation(actionclass.ProposeConfirm, actionclass.Reversible))
	assert.False(t, actionclass.RequiresConfirmation(actionclass.ReportOnly, actionclass.Irreversible))
	assert.False(t, actionclass.RequiresConfirmation(actionclass.Delegated, actionclass.Irreversible))
}

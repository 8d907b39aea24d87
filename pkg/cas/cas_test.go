package cas

import "testing"

func TestApply_EmptySet(t *testing.T) {
	_, err := Apply(nil, nil, Update{Table: "rag.progress", PKColumn: "src", PKValue: "doc1"})
	if err == nil {
		t.Fatal("expected error for empty Set")
	}
}

func TestApply_EmptySet_WithAndEquals(t *testing.T) {
	_, err := Apply(nil, nil, Update{
		Table:     "kb.scheduled_tasks",
		PKColumn:  "user_id",
		PKValue:   "u1",
		AndEquals: map[string]any{"task_id": "t1"},
	})
	if err == nil {
		t.Fatal("expected error for empty Set")
	}
}

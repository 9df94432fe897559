package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		ev   *Event
		want string
		ok   bool
	}{
		{name: "nil event", ev: nil},
		{name: "no content", ev: &Event{}},
		{
			name: "plain text",
			ev:   textEvent("hello", false),
			want: "hello", ok: true,
		},
		{
			name: "whitespace only",
			ev:   textEvent("   \n\t", false),
		},
		{
			name: "trimmed",
			ev:   textEvent("  คำตอบ  ", false),
			want: "คำตอบ", ok: true,
		},
		{
			name: "tool call carries no text",
			ev: &Event{Content: &genai.Content{Parts: []*genai.Part{
				{FunctionCall: &genai.FunctionCall{Name: "get_profile"}},
			}}},
		},
		{
			name: "first non-empty part wins",
			ev: &Event{Content: &genai.Content{Parts: []*genai.Part{
				{Text: ""},
				{Text: "first"},
				{Text: "second"},
			}}},
			want: "first", ok: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Extract(tt.ev)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

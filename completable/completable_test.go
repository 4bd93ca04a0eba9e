package completable

import (
	"context"
	"testing"

	"github.com/socotra/mcp-go/mcp"
	"github.com/stretchr/testify/require"
)

func TestAttachAndSuggest(t *testing.T) {
	r := NewRegistry()
	arg := &mcp.PromptArgument{Name: "city"}

	require.False(t, r.IsCompletable(arg))

	r.Attach(arg, func(ctx context.Context, value string) []string {
		return []string{"berlin", "boston", "bogota"}
	})

	require.True(t, r.IsCompletable(arg))
	completion := r.Suggest(context.Background(), arg, "bo")
	require.Equal(t, []string{"berlin", "bogota", "boston"}, completion.Values)
	require.False(t, completion.HasMore)
}

func TestSuggestWithoutCompleterIsEmpty(t *testing.T) {
	r := NewRegistry()
	arg := &mcp.PromptArgument{Name: "uncompletable"}

	completion := r.Suggest(context.Background(), arg, "x")
	require.Empty(t, completion.Values)
}

func TestSuggestTruncatesOverMax(t *testing.T) {
	r := NewRegistry()
	arg := &mcp.PromptArgument{Name: "many"}

	values := make([]string, 0, 150)
	for i := 0; i < 150; i++ {
		values = append(values, string(rune('a'+i%26)))
	}
	r.Attach(arg, func(ctx context.Context, value string) []string { return values })

	completion := r.Suggest(context.Background(), arg, "")
	require.Len(t, completion.Values, mcp.MaxCompletionValues)
	require.True(t, completion.HasMore)
	require.NotNil(t, completion.Total)
	require.Equal(t, 150, *completion.Total)
}

package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/taskmesh/core"
)

func collect(t *testing.T, respCh <-chan Response, errCh <-chan error) []Response {
	t.Helper()

	var responses []Response
	for resp := range respCh {
		responses = append(responses, resp)
	}
	for err := range errCh {
		require.NoError(t, err)
	}
	return responses
}

func TestMockProviderKeyedResponse(t *testing.T) {
	m := NewMockProvider("mock-1", "mock")
	m.AddResponse("hello", "world")

	respCh, errCh := m.Generate(context.Background(), Request{
		Contents: []core.Content{core.NewTextContent("user", "hello")},
	})

	responses := collect(t, respCh, errCh)
	require.Len(t, responses, 1)
	assert.False(t, responses[0].Partial)
	assert.Equal(t, "world", responses[0].Content.Text())
	assert.Equal(t, "stop", responses[0].FinishReason)
}

func TestMockProviderScriptedResponses(t *testing.T) {
	m := NewMockProvider("mock-1", "mock")
	m.Enqueue("first", "second")

	for _, want := range []string{"first", "second"} {
		respCh, errCh := m.Generate(context.Background(), Request{
			Contents: []core.Content{core.NewTextContent("user", "anything")},
		})
		responses := collect(t, respCh, errCh)
		require.Len(t, responses, 1)
		assert.Equal(t, want, responses[0].Content.Text())
	}

	assert.Equal(t, 2, m.Calls())

	// Script exhausted, falls back to the default echo.
	respCh, errCh := m.Generate(context.Background(), Request{
		Contents: []core.Content{core.NewTextContent("user", "ping")},
	})
	responses := collect(t, respCh, errCh)
	require.Len(t, responses, 1)
	assert.Contains(t, responses[0].Content.Text(), "ping")
}

func TestMockProviderStreaming(t *testing.T) {
	m := NewMockProvider("mock-1", "mock")
	m.AddResponse("in", "out")

	respCh, errCh := m.Generate(context.Background(), Request{
		Contents: []core.Content{core.NewTextContent("user", "in")},
		Stream:   true,
	})

	responses := collect(t, respCh, errCh)
	// Three char chunks plus the final response.
	require.Len(t, responses, 4)
	assert.True(t, responses[0].Partial)
	assert.False(t, responses[len(responses)-1].Partial)
	assert.Equal(t, "out", responses[len(responses)-1].Content.Text())
}

func TestMockProviderEmptyContents(t *testing.T) {
	m := NewMockProvider("mock-1", "mock")

	respCh, errCh := m.Generate(context.Background(), Request{})

	for range respCh {
		t.Fatal("expected no responses")
	}
	err := <-errCh
	assert.Error(t, err)
}

func TestMockProviderInfo(t *testing.T) {
	m := NewMockProvider("mock-1", "mock")
	info := m.Info()
	assert.Equal(t, "mock-1", info.Name)
	assert.Equal(t, "mock", info.Provider)
	assert.True(t, info.SupportsTools)
}

package protocol

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context, *ReceiveRequest, map[string]string) (any, error) { return nil, nil }

func activityTable(t *testing.T) *Table {
	t.Helper()
	table, err := NewTable(
		Template{Method: http.MethodPost, Path: "/activities/{activityId}", Action: noop},
		Template{Method: http.MethodPut, Path: "/activities/{activityId}", Action: noop},
		Template{Method: http.MethodDelete, Path: "/activities/{activityId}", Action: noop},
	)
	require.NoError(t, err)
	return table
}

func TestTable_Match(t *testing.T) {
	table := activityTable(t)

	tests := []struct {
		name      string
		method    string
		path      string
		wantMatch bool
		wantRoute string
		wantID    string
	}{
		{"post", "POST", "/activities/a1", true, "POST /activities/{activityId}", "a1"},
		{"put", "PUT", "/activities/a1", true, "PUT /activities/{activityId}", "a1"},
		{"delete", "DELETE", "/activities/xyz", true, "DELETE /activities/{activityId}", "xyz"},
		{"lowercase method", "post", "/activities/a1", false, "", ""},
		{"unknown method", "PATCH", "/activities/a1", false, "", ""},
		{"literal case", "POST", "/Activities/a1", false, "", ""},
		{"empty placeholder", "POST", "/activities/", false, "", ""},
		{"trailing slash", "POST", "/activities/a1/", false, "", ""},
		{"too short", "POST", "/activities", false, "", ""},
		{"too long", "POST", "/activities/a1/replies", false, "", ""},
		{"no leading slash", "POST", "activities/a1", false, "", ""},
		{"root", "POST", "/", false, "", ""},
		{"escaped slash", "POST", "/activities/conv%2F0001", true, "POST /activities/{activityId}", "conv/0001"},
		{"escaped space", "DELETE", "/activities/a%20b", true, "DELETE /activities/{activityId}", "a b"},
		{"bad escape", "POST", "/activities/%zz", false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok := table.Match(tt.method, tt.path)
			assert.Equal(t, tt.wantMatch, ok)
			if !tt.wantMatch {
				assert.Nil(t, m)
				return
			}
			require.NotNil(t, m)
			assert.Equal(t, tt.wantRoute, m.Template.String())
			assert.Equal(t, tt.wantID, m.Param("activityId"))
		})
	}
}

func TestTable_FirstMatchWins(t *testing.T) {
	var hit string
	mark := func(name string) Action {
		return func(context.Context, *ReceiveRequest, map[string]string) (any, error) {
			hit = name
			return nil, nil
		}
	}

	table, err := NewTable(
		Template{Method: "GET", Path: "/activities/latest", Action: mark("literal")},
		Template{Method: "GET", Path: "/activities/{activityId}", Action: mark("placeholder")},
	)
	require.NoError(t, err)

	m, ok := table.Match("GET", "/activities/latest")
	require.True(t, ok)
	_, _ = m.Template.Action(context.Background(), nil, m.Params)
	assert.Equal(t, "literal", hit)
	assert.Empty(t, m.Params)

	m, ok = table.Match("GET", "/activities/other")
	require.True(t, ok)
	_, _ = m.Template.Action(context.Background(), nil, m.Params)
	assert.Equal(t, "placeholder", hit)

	// 反向注册时占位符模板遮蔽字面量模板
	reversed, err := NewTable(
		Template{Method: "GET", Path: "/activities/{activityId}", Action: mark("placeholder")},
		Template{Method: "GET", Path: "/activities/latest", Action: mark("literal")},
	)
	require.NoError(t, err)
	m, ok = reversed.Match("GET", "/activities/latest")
	require.True(t, ok)
	assert.Equal(t, "/activities/{activityId}", m.Template.Path)
	assert.Equal(t, "latest", m.Param("activityId"))
}

func TestTable_MultiplePlaceholders(t *testing.T) {
	table, err := NewTable(Template{
		Method: "POST",
		Path:   "/v3/conversations/{conversationId}/activities/{activityId}",
		Action: noop,
	})
	require.NoError(t, err)

	m, ok := table.Match("POST", "/v3/conversations/c-1/activities/a-2")
	require.True(t, ok)
	assert.Equal(t, map[string]string{"conversationId": "c-1", "activityId": "a-2"}, m.Params)
}

func TestNewTable_Invalid(t *testing.T) {
	tests := []struct {
		name string
		tmpl Template
	}{
		{"empty method", Template{Path: "/a"}},
		{"relative path", Template{Method: "GET", Path: "a/b"}},
		{"empty path", Template{Method: "GET", Path: ""}},
		{"empty placeholder", Template{Method: "GET", Path: "/a/{}"}},
		{"unclosed placeholder", Template{Method: "GET", Path: "/a/{id"}},
		{"embedded placeholder", Template{Method: "GET", Path: "/a/x{id}"}},
		{"nested braces", Template{Method: "GET", Path: "/a/{{id}}"}},
		{"duplicate placeholder", Template{Method: "GET", Path: "/{id}/{id}"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTable(tt.tmpl)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidTemplate))
		})
	}

	assert.Panics(t, func() { MustNewTable(Template{Method: "GET"}) })
}

func TestTable_Templates(t *testing.T) {
	table := activityTable(t)
	templates := table.Templates()
	require.Len(t, templates, 3)
	assert.Equal(t, "POST", templates[0].Method)
	assert.Equal(t, "DELETE", templates[2].Method)
}

func TestResponseHelpers(t *testing.T) {
	resp, err := OK(map[string]string{"id": ""})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"id":""}`, string(resp.Body))
	assert.True(t, resp.IsSuccess())

	resp, err = OK(nil)
	require.NoError(t, err)
	assert.Empty(t, resp.Body)

	assert.Equal(t, http.StatusNotFound, NotFound().StatusCode)
	assert.False(t, InternalServerError().IsSuccess())
	assert.False(t, (*Response)(nil).IsSuccess())
}

func TestContentStreams(t *testing.T) {
	ctx := context.Background()

	s, err := NewJSONStream(map[string]string{"type": "message"})
	require.NoError(t, err)
	text, err := s.ReadString(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"message"}`, text)

	text, err = (&ReaderStream{R: strings.NewReader("chunk")}).ReadString(ctx)
	require.NoError(t, err)
	assert.Equal(t, "chunk", text)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = (&BytesStream{Data: []byte("x")}).ReadString(cancelled)
	assert.ErrorIs(t, err, context.Canceled)
}

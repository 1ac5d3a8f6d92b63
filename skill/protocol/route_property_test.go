package protocol

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// 路由属性：按注册顺序返回第一个方法与字面量段一致、占位符段非空的模板.

var segmentGen = rapid.StringMatching(`[a-z0-9]{1,6}`)

// genTemplate 生成由字面量段和占位符段组成的模板，占位符名按位置区分.
func genTemplate(t *rapid.T, label string) Template {
	n := rapid.IntRange(1, 4).Draw(t, label+"_len")
	parts := make([]string, n)
	for i := range parts {
		if rapid.Bool().Draw(t, label+"_isParam") {
			parts[i] = "{p" + string(rune('a'+i)) + "}"
		} else {
			parts[i] = segmentGen.Draw(t, label+"_lit")
		}
	}
	return Template{
		Method: rapid.SampledFrom([]string{"GET", "POST", "PUT", "DELETE"}).Draw(t, label+"_method"),
		Path:   "/" + strings.Join(parts, "/"),
		Action: noop,
	}
}

// naiveMatch 是参考实现.
func naiveMatch(tmpl Template, method, path string) bool {
	if tmpl.Method != method {
		return false
	}
	tp := strings.Split(strings.TrimPrefix(tmpl.Path, "/"), "/")
	pp := strings.Split(strings.TrimPrefix(path, "/"), "/")
	if len(tp) != len(pp) {
		return false
	}
	for i := range tp {
		if strings.HasPrefix(tp[i], "{") {
			if pp[i] == "" {
				return false
			}
			continue
		}
		if tp[i] != pp[i] {
			return false
		}
	}
	return true
}

func TestProperty_FirstRegisteredMatchWins(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		count := rapid.IntRange(1, 6).Draw(rt, "count")
		templates := make([]Template, count)
		for i := range templates {
			templates[i] = genTemplate(rt, "tmpl")
		}
		table, err := NewTable(templates...)
		require.NoError(rt, err)

		method := rapid.SampledFrom([]string{"GET", "POST", "PUT", "DELETE"}).Draw(rt, "method")
		var path string
		if rapid.Bool().Draw(rt, "derived") {
			// 从某个模板派生路径，提高命中率
			src := templates[rapid.IntRange(0, count-1).Draw(rt, "src")]
			parts := strings.Split(strings.TrimPrefix(src.Path, "/"), "/")
			for i, p := range parts {
				if strings.HasPrefix(p, "{") {
					parts[i] = rapid.StringMatching(`[a-z0-9]{0,4}`).Draw(rt, "value")
				}
			}
			path = "/" + strings.Join(parts, "/")
		} else {
			segs := rapid.SliceOfN(segmentGen, 1, 4).Draw(rt, "segs")
			path = "/" + strings.Join(segs, "/")
		}

		want := -1
		for i, tmpl := range templates {
			if naiveMatch(tmpl, method, path) {
				want = i
				break
			}
		}

		m, ok := table.Match(method, path)
		if want < 0 {
			assert.False(rt, ok)
			return
		}
		require.True(rt, ok)
		assert.Equal(rt, templates[want].Path, m.Template.Path)
		assert.Equal(rt, templates[want].Method, m.Template.Method)
		for _, v := range m.Params {
			assert.NotEmpty(rt, v)
		}
	})
}

func TestProperty_SegmentCountMismatchNeverMatches(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("paths with a different segment count never match", prop.ForAll(
		func(templateLen, extra int) bool {
			parts := make([]string, templateLen)
			for i := range parts {
				parts[i] = "{p" + string(rune('a'+i)) + "}"
			}
			table, err := NewTable(Template{Method: "POST", Path: "/" + strings.Join(parts, "/"), Action: noop})
			if err != nil {
				return false
			}

			pathLen := templateLen + extra
			if extra < 0 && pathLen < 1 {
				pathLen = templateLen + 1
			}
			segs := make([]string, pathLen)
			for i := range segs {
				segs[i] = "x"
			}
			_, ok := table.Match("POST", "/"+strings.Join(segs, "/"))
			return !ok
		},
		gen.IntRange(1, 8),
		gen.OneGenOf(gen.IntRange(-7, -1), gen.IntRange(1, 7)),
	))

	properties.TestingRun(t)
}

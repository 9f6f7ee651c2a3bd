package extract

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codewiki/internal/types"
)

const sfcSource = `<template>
  <div>
    <MyChild @click="handleClick" :title="pageTitle">{{msg}}</MyChild>
    <transition name="fade">
      <p>content</p>
    </transition>
  </div>
</template>

<script setup>
import MyChild from './MyChild.vue'

const pageTitle = ref('Title')
const msg = ref('hello')

function handleClick() {
}
</script>
`

func parseVue(t *testing.T, rel, src string) *FileResult {
	t.Helper()
	s, err := newVueStrategy(NewFactory())
	require.NoError(t, err)
	res, err := s.Parse(context.Background(), FileRequest{
		AbsPath:  "/repo/" + rel,
		RelPath:  rel,
		Content:  []byte(src),
		Language: LangVue,
	})
	require.NoError(t, err)
	return res
}

func TestVueTemplateEdges(t *testing.T) {
	res := parseVue(t, "src/Page.vue", sfcSource)

	type key struct {
		kind   types.EdgeKind
		callee string
	}
	got := make(map[key]bool)
	for _, e := range res.Edges {
		got[key{e.Kind, shortName(e.Callee)}] = true
	}

	assert.True(t, got[key{types.EdgeUsesComponent, "MyChild"}])
	assert.True(t, got[key{types.EdgeCalls, "handleClick"}])
	assert.True(t, got[key{types.EdgeReferences, "pageTitle"}])
	assert.True(t, got[key{types.EdgeReferences, "msg"}])

	// The <transition> built-in never produces a uses_component edge.
	for k := range got {
		if k.kind == types.EdgeUsesComponent {
			assert.NotEqual(t, "transition", strings.ToLower(k.callee))
		}
	}
}

func TestVueComponentEmitted(t *testing.T) {
	res := parseVue(t, "src/Page.vue", sfcSource)
	require.NotEmpty(t, res.Components)
	sfc := res.Components[0]
	assert.Equal(t, "src.Page.Page", sfc.ID)
	assert.Equal(t, types.KindVueComponent, sfc.Kind)
	assert.Equal(t, "Page", sfc.Name)
}

func TestVueScriptLineOffset(t *testing.T) {
	res := parseVue(t, "src/Page.vue", sfcSource)

	// handleClick is declared on line 16 of the .vue file; the script
	// offset must be applied exactly once.
	var handle *types.Component
	for _, c := range res.Components {
		if c.Name == "handleClick" {
			handle = c
		}
	}
	require.NotNil(t, handle, "script function extracted through delegation")
	lines := strings.Split(sfcSource, "\n")
	want := 0
	for i, l := range lines {
		if strings.HasPrefix(l, "function handleClick") {
			want = i + 1
		}
	}
	assert.Equal(t, want, handle.StartLine)
}

func TestVueReactivityAnnotation(t *testing.T) {
	res := parseVue(t, "src/Page.vue", sfcSource)
	var title *types.Component
	for _, c := range res.Components {
		if c.Name == "pageTitle" {
			title = c
		}
	}
	require.NotNil(t, title)
	assert.Equal(t, "ref", title.Attributes["reactivity"])
}

func TestVueMacros(t *testing.T) {
	src := `<template><div /></template>

<script setup lang="ts">
const props = defineProps<{ title: string }>()
const emit = defineEmits(['close'])
</script>
`
	res := parseVue(t, "src/Dialog.vue", src)
	var kinds []types.Kind
	for _, c := range res.Components {
		kinds = append(kinds, c.Kind)
	}
	assert.Contains(t, kinds, types.KindVueProps)
	assert.Contains(t, kinds, types.KindVueEmits)
}

package xmlmap

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signtrack/internal/domain"
)

func TestDecodeNestedNamespacedDocument(t *testing.T) {
	input := []byte(`<?xml version="1.0" encoding="utf-8"?>
<DocuSignEnvelopeInformation xmlns="http://www.docusign.net/API/3.0">
  <EnvelopeStatus>
    <EnvelopeID>abc-123</EnvelopeID>
    <Status>Sent</Status>
  </EnvelopeStatus>
</DocuSignEnvelopeInformation>`)

	tree, err := Decode(input)
	require.NoError(t, err)

	const ns = "{http://www.docusign.net/API/3.0}"
	root := tree.Child(ns + "DocuSignEnvelopeInformation")
	require.NotNil(t, root)

	status := root.Child(ns + "EnvelopeStatus")
	require.NotNil(t, status)

	id, ok := status.Leaf(ns + "EnvelopeID")
	require.True(t, ok)
	assert.Equal(t, "abc-123", id)

	value, ok := status.Leaf(ns + "Status")
	require.True(t, ok)
	assert.Equal(t, "Sent", value)
}

func TestDecodeLeafRules(t *testing.T) {
	input := []byte(`<root><padded>  hello  </padded><empty></empty><selfclosed/></root>`)

	tree, err := Decode(input)
	require.NoError(t, err)

	root := tree.Child("root")
	require.NotNil(t, root)

	padded, ok := root.Leaf("padded")
	require.True(t, ok)
	assert.Equal(t, "hello", padded)

	empty, ok := root.Leaf("empty")
	require.True(t, ok)
	assert.Equal(t, "", empty)

	selfclosed, ok := root.Leaf("selfclosed")
	require.True(t, ok)
	assert.Equal(t, "", selfclosed)
}

func TestDecodeDuplicateSiblingsLastWins(t *testing.T) {
	input := []byte(`<root><item>first</item><item>second</item><item>third</item></root>`)

	tree, err := Decode(input)
	require.NoError(t, err)

	item, ok := tree.Child("root").Leaf("item")
	require.True(t, ok)
	assert.Equal(t, "third", item)
}

func TestDecodeElementWithChildrenBecomesMap(t *testing.T) {
	input := []byte(`<a><b><c>leaf</c></b></a>`)

	tree, err := Decode(input)
	require.NoError(t, err)

	b := tree.Child("a").Child("b")
	require.NotNil(t, b)
	leaf, ok := b.Leaf("c")
	require.True(t, ok)
	assert.Equal(t, "leaf", leaf)
}

func TestDecodeMalformedInput(t *testing.T) {
	for _, input := range []string{
		"<unclosed>",
		"not xml at all",
		"",
		"<a><b></a></b>",
	} {
		_, err := Decode([]byte(input))
		assert.True(t, errors.Is(err, domain.ErrMalformedPayload), "input %q: got %v", input, err)
	}
}

func TestChildAndLeafOnMissingKeys(t *testing.T) {
	tree, err := Decode([]byte(`<root><leaf>x</leaf></root>`))
	require.NoError(t, err)

	assert.Nil(t, tree.Child("nope"))
	assert.Nil(t, tree.Child("nope").Child("deeper"))

	_, ok := tree.Child("root").Leaf("absent")
	assert.False(t, ok)

	// A subtree is not a leaf.
	_, ok = tree.Leaf("root")
	assert.False(t, ok)
}

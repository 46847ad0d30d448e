package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStableIDIsDeterministic(t *testing.T) {
	a := StableID("PROD001", "Wireless Headphones", "great battery life")
	b := StableID(" PROD001 ", "Wireless Headphones", "great battery life ")
	c := StableID("PROD002", "Wireless Headphones", "great battery life")

	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
	require.Equal(t, 5, int(a.Version()))
}

func TestContextBlockCarriesMetadata(t *testing.T) {
	doc := Document{Title: "BoAt Rockerz 235v2", Review: "great battery life", Price: 1299, Rating: 4.2, ReviewCount: 15}
	block := doc.ContextBlock()

	require.Contains(t, block, "Title: BoAt Rockerz 235v2")
	require.Contains(t, block, "Price: 1299")
	require.Contains(t, block, "Rating: 4.2")
	require.Contains(t, block, "Reviews: 15")
	require.Contains(t, block, "Review: great battery life")
	require.NotContains(t, block, "Summary:")
}

func TestContentIncludesSummaryWhenPresent(t *testing.T) {
	doc := Document{Title: "Speaker", Summary: "Loud", Review: "fills the room"}
	require.Equal(t, "Speaker\nLoud\nfills the room", doc.Content())
	doc.Summary = ""
	require.Equal(t, "Speaker\nfills the room", doc.Content())
}

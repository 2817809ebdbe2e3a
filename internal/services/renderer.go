package services

import (
	"sort"
	"strings"

	"github.com/KondratovaLudmila/exchange-chat/internal/domain"
)

// Node is one level of a rendered value tree.
type Node interface {
	isNode()
}

type Scalar string

type Pair struct {
	Key   string
	Value Node
}

// Mapping keeps its entries ordered; map iteration order would make the
// rendering nondeterministic.
type Mapping []Pair

func (Scalar) isNode()  {}
func (Mapping) isNode() {}

// RenderResults renders a fetch batch as the nested list markup sent to
// peers. A failed day renders as its error marker text.
func RenderResults(results []domain.DayResult) string {
	var b strings.Builder
	for _, res := range results {
		renderNode(&b, resultNode(res))
	}
	return b.String()
}

func resultNode(res domain.DayResult) Node {
	if res.Failed() {
		return Scalar(res.Err)
	}
	return Mapping{{Key: res.Rate.Date, Value: ratesNode(res.Rate)}}
}

func ratesNode(rate *domain.DailyRate) Node {
	codes := make([]string, 0, len(rate.Rates))
	for code := range rate.Rates {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	node := make(Mapping, 0, len(codes))
	for _, code := range codes {
		curr := rate.Rates[code]
		node = append(node, Pair{Key: code, Value: Mapping{
			{Key: "sale", Value: Scalar(curr.Sale.String())},
			{Key: "purchase", Value: Scalar(curr.Purchase.String())},
		}})
	}
	return node
}

func renderNode(b *strings.Builder, node Node) {
	switch n := node.(type) {
	case Scalar:
		b.WriteString(string(n))
	case Mapping:
		b.WriteString("<ul><li>")
		for i, pair := range n {
			if i > 0 {
				b.WriteString("</li><li>")
			}
			b.WriteString(pair.Key)
			b.WriteString(": ")
			renderNode(b, pair.Value)
		}
		b.WriteString("</li></ul>")
	}
}

// RenderText renders a fetch batch as an indented plain-text listing for
// the one-shot invocation.
func RenderText(results []domain.DayResult) string {
	var b strings.Builder
	for _, res := range results {
		renderTextNode(&b, resultNode(res), 0)
	}
	return b.String()
}

func renderTextNode(b *strings.Builder, node Node, depth int) {
	indent := strings.Repeat("  ", depth)
	switch n := node.(type) {
	case Scalar:
		b.WriteString(indent)
		b.WriteString(string(n))
		b.WriteString("\n")
	case Mapping:
		for _, pair := range n {
			if leaf, ok := pair.Value.(Scalar); ok {
				b.WriteString(indent)
				b.WriteString(pair.Key)
				b.WriteString(": ")
				b.WriteString(string(leaf))
				b.WriteString("\n")
				continue
			}
			b.WriteString(indent)
			b.WriteString(pair.Key)
			b.WriteString(":\n")
			renderTextNode(b, pair.Value, depth+1)
		}
	}
}

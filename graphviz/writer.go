// Package graphviz renders a *cpn.Net to a graphviz figure — places as
// circles, transitions as boxes, arcs labeled by their pattern — for the
// `cpnmonitor viz` command.
package graphviz

import (
	"fmt"
	"io"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"

	"github.com/jt05610/cpnmonitor/cpn"
)

type Font string

func (f Font) Or(other Font) Font {
	return f + "," + other
}

const (
	Helvetica Font = "Helvetica"
	Roboto    Font = "Roboto"
	SansSerif Font = "sans-serif"
)

type RankDir string

const (
	LeftToRight RankDir = "LR"
	TopToBottom RankDir = "TB"
)

type Config struct {
	Name string
	Font
	RankDir
}

// Writer renders a *cpn.Net as a graphviz graph.
type Writer struct {
	*Config
	g           *cgraph.Graph
	places      map[string]*cgraph.Node
	transitions map[string]*cgraph.Node
}

func New(config *Config) *Writer {
	if config.Name == "" {
		config.Name = "net"
	}
	return &Writer{
		Config:      config,
		places:      make(map[string]*cgraph.Node),
		transitions: make(map[string]*cgraph.Node),
	}
}

func (w *Writer) writePlace(name string) error {
	node, err := w.g.CreateNode("p_" + name)
	if err != nil {
		return err
	}
	node.SetShape(cgraph.CircleShape)
	node.SetLabel(name)
	node.Set("fontname", string(w.Font))
	w.places[name] = node
	return nil
}

func (w *Writer) writeTransition(t *cpn.Transition) error {
	node, err := w.g.CreateNode("t_" + t.Name)
	if err != nil {
		return err
	}
	node.SetShape(cgraph.BoxShape)
	node.SetLabel(t.Name)
	node.Set("fontname", string(w.Font))
	w.transitions[t.Name] = node
	return nil
}

func patternLabel(p cpn.Pattern) string {
	if p.IsVariable() {
		return p.Variable
	}
	return p.Concrete.String()
}

func (w *Writer) writeArc(id string, src, dst *cgraph.Node, pattern cpn.Pattern) error {
	edge, err := w.g.CreateEdge(id, src, dst)
	if err != nil {
		return err
	}
	edge.SetLabel(patternLabel(pattern))
	edge.Set("fontname", string(w.Font))
	return nil
}

// Flush renders net's places, transitions and arcs to out in graphviz's
// XDOT format.
func (w *Writer) Flush(out io.Writer, net *cpn.Net) error {
	graph := graphviz.New()
	defer func() {
		_ = graph.Close()
	}()
	g, err := graph.Graph()
	if err != nil {
		return err
	}
	g.SetRankDir(cgraph.RankDir(w.RankDir))
	w.g = g

	for _, p := range net.SortedPlaces() {
		if err := w.writePlace(p); err != nil {
			return err
		}
	}
	for _, name := range net.SortedTransitionNames() {
		if err := w.writeTransition(net.Transitions[name]); err != nil {
			return err
		}
	}
	for _, name := range net.SortedTransitionNames() {
		t := net.Transitions[name]
		for i, a := range t.Pre {
			id := fmt.Sprintf("%s_pre_%d", name, i)
			if err := w.writeArc(id, w.places[a.Place], w.transitions[name], a.Pattern); err != nil {
				return err
			}
		}
		for i, a := range t.Post {
			id := fmt.Sprintf("%s_post_%d", name, i)
			if err := w.writeArc(id, w.transitions[name], w.places[a.Place], a.Pattern); err != nil {
				return err
			}
		}
	}

	return graph.Render(w.g, graphviz.XDOT, out)
}

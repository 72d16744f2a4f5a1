// Package render exports static snapshots of a diagram.
//
// Interactive rendering and layout belong to the external diagramming
// engine and are out of scope here; this package only converts a diagram to
// Graphviz DOT and delegates the actual drawing to Graphviz, for shareable
// SVG/PNG exports from the command line.
package render

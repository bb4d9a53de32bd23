// Package style renders modlink results for people and for machines.
//
// Terminal output uses lipgloss styles from an embedded styles.yaml, bound
// to the output writer so color is only emitted where the writer supports
// it. Plain output is the same layout with the ASCII color profile. JSON and
// YAML renderers encode the result structs as they are.
//
// Format selection follows the usual rules: an explicit --format wins;
// otherwise NO_COLOR, a non-terminal stdout or an ASCII termenv profile all
// select plain text.
package style

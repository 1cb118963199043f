package export

// Report is tabular export content. Every row must align with Headers.
type Report struct {
	Title   string
	Headers []string
	Rows    [][]string
}

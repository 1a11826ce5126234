package export

// Dataset defines tabular export content. Notes are free-form lines printed
// after the table by renderers that support them.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
	Notes   []string
}

// Column returns every value of one column in row order.
func (d Dataset) Column(header string) []string {
	out := make([]string, len(d.Rows))
	for i, row := range d.Rows {
		out[i] = row[header]
	}
	return out
}

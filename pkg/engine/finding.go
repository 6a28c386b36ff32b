package engine

// Finding pairs a vulnerability with a server running the affected OS.
type Finding struct {
	Name     string
	Risk     string
	Hostname string
	IP       string
}

package domain

// Frame is one entry of a captured call stack. Zero values mean the
// information was not available.
type Frame struct {
	Index     int    `json:"index"`
	File      string `json:"file,omitempty"`
	Line      int    `json:"line,omitempty"`
	Namespace string `json:"namespace,omitempty"`
	Function  string `json:"function,omitempty"`
}

// HasSymbol reports whether the frame carries a namespace or function name.
func (f Frame) HasSymbol() bool {
	return f.Namespace != "" || f.Function != ""
}

// Link is an editor link to a source location, rendered by the toolbar as a
// clickable origin.
type Link struct {
	URL      string `json:"url"`
	Ajax     bool   `json:"ajax"`
	Filename string `json:"filename"`
	Line     string `json:"line"`
}

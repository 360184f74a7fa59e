// Package editorlink builds "open in editor" links for source locations.
package editorlink

import (
	"net/url"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"debugbar/internal/domain"
)

// Templates maps editor names to URL templates. %f is replaced with the
// escaped file path and %l with the line number.
var Templates = map[string]string{
	"sublime":                "subl://open?url=file://%f&line=%l",
	"textmate":               "txmt://open?url=file://%f&line=%l",
	"emacs":                  "emacs://open?url=file://%f&line=%l",
	"macvim":                 "mvim://open/?url=file://%f&line=%l",
	"codelite":               "codelite://open?file=%f&line=%l",
	"goland":                 "goland://open?file=%f&line=%l",
	"phpstorm":               "phpstorm://open?file=%f&line=%l",
	"idea":                   "idea://open?file=%f&line=%l",
	"vscode":                 "vscode://file/%f:%l",
	"vscode-insiders":        "vscode-insiders://file/%f:%l",
	"vscode-remote":          "vscode://vscode-remote/%f:%l",
	"vscode-insiders-remote": "vscode-insiders://vscode-remote/%f:%l",
	"vscodium":               "vscodium://file/%f:%l",
	"nova":                   "nova://open?path=%f&line=%l",
	"xdebug":                 "xdebug://%f@%l",
	"atom":                   "atom://core/open/file?filename=%f&line=%l",
	"espresso":               "x-espresso://open?filepath=%f&lines=%l",
	"netbeans":               "netbeans://open/?f=%f:%l",
	"cursor":                 "cursor://file/%f:%l",
}

// ideaAjaxTemplate is used when the raw template "idea" is set. The IDE's
// built-in web server opens the file when the URL is requested in the
// background.
const ideaAjaxTemplate = "http://localhost:63342/api/file/?file=%f&line=%l"

// Linker turns source locations into editor links. Path replacements map a
// server path prefix to the matching local path, for code that runs in a
// container or on a remote host. The zero value produces no links.
// A Linker is safe for concurrent use.
type Linker struct {
	mu           sync.RWMutex
	template     string
	ajax         bool
	replacements map[string]string
}

// New returns a Linker for the named editor. Unknown names yield a Linker
// without a template.
func New(editor string) *Linker {
	l := &Linker{}
	l.SetEditor(editor)
	return l
}

// SetEditor selects one of the named Templates. Unknown names are ignored
// and the current template is kept.
func (l *Linker) SetEditor(editor string) {
	if tmpl, ok := Templates[editor]; ok {
		l.SetTemplate(tmpl, false)
	}
}

// SetTemplate sets a raw URL template. The special value "idea" selects the
// IDE's local web API and turns on ajax.
func (l *Linker) SetTemplate(tmpl string, ajax bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if tmpl == "idea" {
		l.template, l.ajax = ideaAjaxTemplate, true
		return
	}
	l.template, l.ajax = tmpl, ajax
}

// Template returns the current URL template and ajax flag.
func (l *Linker) Template() (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.template, l.ajax
}

// AddReplacements merges server→local path prefix replacements.
func (l *Linker) AddReplacements(replacements map[string]string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.replacements == nil {
		l.replacements = make(map[string]string, len(replacements))
	}
	for server, local := range replacements {
		if server != "" {
			l.replacements[server] = local
		}
	}
}

// SetReplacements replaces all path replacements.
func (l *Linker) SetReplacements(replacements map[string]string) {
	l.mu.Lock()
	l.replacements = nil
	l.mu.Unlock()
	l.AddReplacements(replacements)
}

// Replacements returns a copy of the configured path replacements.
func (l *Linker) Replacements() map[string]string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]string, len(l.replacements))
	for k, v := range l.replacements {
		out[k] = v
	}
	return out
}

// NormalizePath shortens file by stripping the first matching server prefix
// and returns it with forward slashes and no leading slash.
func (l *Linker) NormalizePath(file string) string {
	if file == "" {
		return ""
	}
	file = cleanPath(file)
	if prefix, _, ok := l.match(file); ok {
		file = file[len(prefix):]
	}
	return strings.TrimLeft(strings.ReplaceAll(file, `\`, "/"), "/")
}

// Link returns the editor link for file and line, or nil when no template is
// configured or file is empty. A line of 0 is rendered as 1 in the URL and
// as "?" in the Line field.
func (l *Linker) Link(file string, line int) *domain.Link {
	if l == nil || file == "" {
		return nil
	}
	tmpl, ajax := l.Template()
	if tmpl == "" {
		return nil
	}

	file = cleanPath(file)
	if prefix, local, ok := l.match(file); ok {
		file = local + file[len(prefix):]
	}

	urlLine, label := "1", "?"
	if line > 0 {
		urlLine = strconv.Itoa(line)
		label = urlLine
	}
	u := strings.NewReplacer(
		"%f", url.PathEscape(strings.ReplaceAll(file, `\`, "/")),
		"%l", url.PathEscape(urlLine),
	).Replace(tmpl)

	return &domain.Link{
		URL:      u,
		Ajax:     ajax,
		Filename: path.Base(strings.ReplaceAll(file, `\`, "/")),
		Line:     label,
	}
}

// FrameLink is Link for a captured frame.
func (l *Linker) FrameLink(f domain.Frame) *domain.Link {
	return l.Link(f.File, f.Line)
}

// match returns the longest server prefix that file starts with. Longest
// first keeps the result independent of map iteration order.
func (l *Linker) match(file string) (prefix, local string, ok bool) {
	if l == nil {
		return "", "", false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.replacements) == 0 {
		return "", "", false
	}
	prefixes := make([]string, 0, len(l.replacements))
	for p := range l.replacements {
		prefixes = append(prefixes, p)
	}
	sort.Slice(prefixes, func(i, j int) bool { return len(prefixes[i]) > len(prefixes[j]) })
	for _, p := range prefixes {
		if strings.HasPrefix(file, p) {
			return p, l.replacements[p], true
		}
	}
	return "", "", false
}

// cleanPath resolves symlinks for files that exist locally, like realpath.
func cleanPath(file string) string {
	if resolved, err := filepath.EvalSymlinks(file); err == nil {
		return resolved
	}
	return file
}

package loader

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/leapseq/pkg/token"
)

// DefaultMarkdownLang is the fenced code block language picked up from
// markdown files.
const DefaultMarkdownLang = "seq"

// Template is one expandable `var in a..b { body }` invocation.
type Template struct {
	Name        string
	Description string
	Path        string
	Block       int    // 1-based fenced block index in markdown files, 0 otherwise
	Source      string // text handed to the lexer
	Base        token.Position
	Config      *FrontmatterConfig
}

// ID identifies the template in output and errors.
func (t *Template) ID() string {
	if t.Block > 0 {
		return fmt.Sprintf("%s#%d", t.Path, t.Block)
	}
	return t.Path
}

// Options configures template discovery.
type Options struct {
	// MarkdownLang is the fenced block language to extract (default "seq").
	MarkdownLang string
}

func (o Options) lang() string {
	if o.MarkdownLang == "" {
		return DefaultMarkdownLang
	}
	return o.MarkdownLang
}

// IsMarkdown reports whether path is loaded as a markdown file.
func IsMarkdown(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return true
	}
	return false
}

// IsTemplateFile reports whether path is picked up by LoadDir.
func IsTemplateFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".seq") || IsMarkdown(path)
}

// ParseSeq parses the contents of a .seq file.
func ParseSeq(path, content string) (*Template, error) {
	fm, err := ExtractFrontmatter(content)
	if err != nil {
		return nil, withFile(err, path, 1)
	}

	name := fm.Config.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return &Template{
		Name:        name,
		Description: fm.Config.Description,
		Path:        path,
		Source:      content,
		Base:        token.Position{Line: 1, Column: 1},
		Config:      fm.Config,
	}, nil
}

// LoadReader reads a single .seq template from r.
func LoadReader(name string, r io.Reader) (*Template, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return ParseSeq(name, string(content))
}

// LoadFile loads every template in the file at path.
func LoadFile(path string, opts Options) ([]*Template, error) {
	content, err := os.ReadFile(path) //nolint:gosec // G304: path is user-provided template location
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if IsMarkdown(path) {
		return ParseMarkdown(path, content, opts.lang())
	}
	tpl, err := ParseSeq(path, string(content))
	if err != nil {
		return nil, err
	}
	return []*Template{tpl}, nil
}

// LoadDir recursively loads templates from dir in lexical path order,
// skipping hidden files and directories.
func LoadDir(dir string, opts Options) ([]*Template, error) {
	var templates []*Template

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") && path != dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !IsTemplateFile(path) {
			return nil
		}

		found, err := LoadFile(path, opts)
		if err != nil {
			return err
		}
		templates = append(templates, found...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan directory: %w", err)
	}
	return templates, nil
}

// Load resolves each path to templates. Directories are walked; "-" reads
// stdin.
func Load(paths []string, stdin io.Reader, opts Options) ([]*Template, error) {
	var templates []*Template
	for _, p := range paths {
		if p == "-" {
			tpl, err := LoadReader("<stdin>", stdin)
			if err != nil {
				return nil, err
			}
			templates = append(templates, tpl)
			continue
		}

		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", p, err)
		}
		var found []*Template
		if info.IsDir() {
			found, err = LoadDir(p, opts)
		} else {
			found, err = LoadFile(p, opts)
		}
		if err != nil {
			return nil, err
		}
		templates = append(templates, found...)
	}
	return templates, nil
}

// positionAt converts a byte offset in src to a line/column position.
func positionAt(src []byte, offset int) token.Position {
	pos := token.Position{Line: 1, Column: 1, Offset: offset}
	for _, b := range src[:offset] {
		if b == '\n' {
			pos.Line++
			pos.Column = 1
		} else {
			pos.Column++
		}
	}
	return pos
}

package loader

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// markdownFrontmatter matches a leading --- yaml --- block.
var markdownFrontmatter = regexp.MustCompile(`(?s)\A---\r?\n(.*?)\r?\n---\r?\n`)

// ParseMarkdown extracts one template per fenced code block whose info
// string starts with lang. Remaining info words are key=value attributes
// overriding the file frontmatter. Positions refer to the markdown file.
func ParseMarkdown(path string, content []byte, lang string) ([]*Template, error) {
	fileConfig, src, err := markdownConfig(content)
	if err != nil {
		return nil, withFile(err, path, 1)
	}

	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	doc := md.Parser().Parse(text.NewReader(src))

	var (
		templates []*Template
		walkErr   error
		block     int
	)
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		cb, ok := n.(*ast.FencedCodeBlock)
		if !ok || cb.Info == nil {
			return ast.WalkContinue, nil
		}
		fields := strings.Fields(string(cb.Info.Segment.Value(src)))
		if len(fields) == 0 || !strings.EqualFold(fields[0], lang) {
			return ast.WalkContinue, nil
		}
		block++

		attrs, err := parseAttributes(fields[1:])
		if err != nil {
			walkErr = withFile(err, path, positionAt(src, cb.Info.Segment.Start).Line)
			return ast.WalkStop, nil
		}
		lines := cb.Lines()
		if lines.Len() == 0 {
			return ast.WalkSkipChildren, nil
		}

		start := lines.At(0).Start
		config := fileConfig.merge(attrs)
		tpl := &Template{
			Name:        config.Name,
			Description: config.Description,
			Path:        path,
			Block:       block,
			Source:      blockSource(src, lines),
			Base:        positionAt(src, start),
			Config:      config,
		}
		if attrs.Name == "" {
			tpl.Name = defaultBlockName(path, block)
		}
		templates = append(templates, tpl)
		return ast.WalkSkipChildren, nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return templates, nil
}

// markdownConfig parses leading YAML frontmatter and blanks it out so
// offsets in the returned source still match the file.
func markdownConfig(content []byte) (*FrontmatterConfig, []byte, error) {
	loc := markdownFrontmatter.FindSubmatchIndex(content)
	if loc == nil {
		return &FrontmatterConfig{}, content, nil
	}

	config, err := parseFrontmatterYAML(string(content[loc[2]:loc[3]]))
	if err != nil {
		return nil, nil, err
	}
	// a file-level name would collide across blocks
	config.Name = ""

	src := make([]byte, len(content))
	copy(src, content)
	for i := loc[0]; i < loc[1]; i++ {
		if src[i] != '\n' && src[i] != '\r' {
			src[i] = ' '
		}
	}
	return config, src, nil
}

// blockSource returns the code lines of a fenced block. Container markup
// between line segments (blockquote markers, list indentation) is blanked
// so offsets and columns still match the file.
func blockSource(src []byte, lines *text.Segments) string {
	start, stop := lines.At(0).Start, lines.At(lines.Len()-1).Stop
	out := []byte(strings.Repeat(" ", stop-start))
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		copy(out[seg.Start-start:], src[seg.Start:seg.Stop])
	}
	for i := range out {
		if c := src[start+i]; c == '\n' || c == '\r' {
			out[i] = c
		}
	}
	return string(out)
}

func defaultBlockName(path string, block int) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return base + "-" + strconv.Itoa(block)
}

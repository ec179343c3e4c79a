// Package useref rewrites HTML build blocks into single bundle references.
//
// A build block names a bundle type and target and wraps the tags it replaces:
//
//	<!-- build:css assets/styles/vendor.css -->
//	<link rel="stylesheet" href="/node_modules/bootstrap/dist/css/bootstrap.css">
//	<!-- endbuild -->
//
// The referenced files are concatenated into the target and the block becomes
// one <link> or <script> tag. A "remove" block is dropped entirely.
package useref

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	ferrors "github.com/licht-dev/licht-compile/internal/foundation/errors"
)

var blockRe = regexp.MustCompile(`(?s)<!--\s*build:(\w+)(?:\(([^)]*)\))?(?:\s+(\S+))?\s*-->(.*?)<!--\s*endbuild\s*-->`)

// Asset is a bundle produced from a build block. Path is slash-separated and
// relative to the same base as the HTML document.
type Asset struct {
	Path     string
	Contents []byte
}

// Processor resolves the files referenced inside build blocks.
type Processor struct {
	// SearchPath lists directories probed in order for each reference.
	SearchPath []string
	// Root anchors alternate search paths given as build:js(dir1,dir2).
	Root string
}

// Process rewrites every build block in doc, which lives at docPath relative
// to its base, and returns the new document plus the bundles it references.
func (p *Processor) Process(doc []byte, docPath string) ([]byte, []Asset, error) {
	var (
		assets  []Asset
		seen    = map[string]int{}
		procErr error
	)

	out := blockRe.ReplaceAllFunc(doc, func(block []byte) []byte {
		if procErr != nil {
			return block
		}
		m := blockRe.FindSubmatch(block)
		kind, alt, target, body := string(m[1]), string(m[2]), string(m[3]), m[4]

		if kind == "remove" {
			return nil
		}
		if kind != "js" && kind != "css" {
			return block
		}
		if target == "" {
			procErr = ferrors.ValidationError("build block without target").
				WithContext("file", docPath).
				WithContext("type", kind).
				Build()
			return block
		}

		bundle, err := p.concat(docPath, kind, alt, body)
		if err != nil {
			procErr = err
			return block
		}

		assetPath := resolve(docPath, target)
		if i, ok := seen[assetPath]; ok {
			assets[i].Contents = bundle
		} else {
			seen[assetPath] = len(assets)
			assets = append(assets, Asset{Path: assetPath, Contents: bundle})
		}
		return []byte(tagFor(kind, target))
	})
	if procErr != nil {
		return nil, nil, procErr
	}
	return out, assets, nil
}

func tagFor(kind, target string) string {
	if kind == "css" {
		return `<link rel="stylesheet" href="` + html.EscapeString(target) + `">`
	}
	return `<script src="` + html.EscapeString(target) + `"></script>`
}

func (p *Processor) concat(docPath, kind, alt string, body []byte) ([]byte, error) {
	search := p.SearchPath
	if alt != "" {
		search = nil
		for _, dir := range strings.Split(alt, ",") {
			dir = strings.TrimSpace(dir)
			if dir == "" {
				continue
			}
			if !filepath.IsAbs(dir) {
				dir = filepath.Join(p.Root, dir)
			}
			search = append(search, dir)
		}
	}

	var parts [][]byte
	for _, ref := range references(kind, body) {
		data, err := find(search, resolve(docPath, ref))
		if err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryTransform, "build block reference not found").
				WithContext("file", docPath).
				WithContext("reference", ref).
				Build()
		}
		parts = append(parts, bytes.TrimRight(data, "\n"))
	}
	if len(parts) == 0 {
		return nil, nil
	}
	return append(bytes.Join(parts, []byte("\n")), '\n'), nil
}

// references extracts script sources or stylesheet hrefs from a block body.
func references(kind string, body []byte) []string {
	var refs []string
	z := html.NewTokenizer(bytes.NewReader(body))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return refs
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			want := ""
			switch {
			case kind == "js" && string(name) == "script":
				want = "src"
			case kind == "css" && string(name) == "link":
				want = "href"
			}
			for want != "" && hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				if string(key) == want && len(val) > 0 {
					refs = append(refs, string(val))
				}
			}
		}
	}
}

// resolve maps a reference to a slash path relative to the document base.
// Absolute references are base-relative; others are relative to the document.
func resolve(docPath, ref string) string {
	if i := strings.IndexAny(ref, "?#"); i >= 0 {
		ref = ref[:i]
	}
	if strings.HasPrefix(ref, "/") {
		return path.Clean(strings.TrimPrefix(ref, "/"))
	}
	return path.Join(path.Dir(docPath), ref)
}

func find(search []string, rel string) ([]byte, error) {
	for _, dir := range search {
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return nil, fs.ErrNotExist
}

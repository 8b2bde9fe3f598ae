// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package docgraph ingests Markdown documentation into the shared property
// graph (spec §4.5's Doc specialization of the Base Graph Manager): a
// DocFile per document, its Sections, and Concepts extracted from
// headings, **bold** spans, and fenced code-block languages, with code
// references and concepts linked back to the code subgraph.
package docgraph

import (
	"bufio"
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kraklabs/agentmem/internal/logging"
	"github.com/kraklabs/agentmem/pkg/graph"
	"github.com/kraklabs/agentmem/pkg/model"
)

var (
	atxHeadingPattern        = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	fenceStartPattern        = regexp.MustCompile("^```\\s*([a-zA-Z0-9_+-]*)\\s*$")
	fenceEndPattern          = regexp.MustCompile("^```\\s*$")
	boldPattern              = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	lineReferencePattern     = regexp.MustCompile(`([\w./-]+\.\w+):(\d+)`)
	atReferencePattern       = regexp.MustCompile(`@([\w./-]+\.\w+)`)
	codeSpanReferencePattern = regexp.MustCompile("`([\\w./-]+\\.\\w+)`")
	linkPattern              = regexp.MustCompile(`\[[^\]]*\]\(([^)]+)\)`)
	frontMatterDelimPattern  = regexp.MustCompile(`^---\s*$`)
)

// Section is one heading-delimited chunk of a document, nested by level.
type Section struct {
	ID       string
	Level    int
	Title    string
	Body     string
	ParentID string // "" for a top-level section
}

// Concept is a named idea extracted from a heading, a **bold** span, or a
// fenced code block's language tag (spec §4.5).
type Concept struct {
	ID       string // "<category>:<name>"
	Category string // "heading", "emphasis", or "language"
	Name     string
}

// CodeReference is a code_reference token recognized in prose: `@file.py`,
// `file.py:line`, or a backticked `file.py` span (spec §4.5).
type CodeReference struct {
	File string
	Line int // 0 when no line number was given
}

// Document is the parsed representation of one Markdown file (spec §4.5:
// "{title, sections[level<=6], concepts, code_references, links, metadata}").
type Document struct {
	Path       string
	Title      string
	Sections   []Section
	Concepts   []Concept
	References []CodeReference
	Links      []string
	Metadata   map[string]any
}

// Parse walks raw Markdown text and extracts its title, section/heading
// tree, concepts, code references, links, and any YAML front matter.
func Parse(path, text string) Document {
	doc := Document{Path: path, Metadata: map[string]any{}}

	body, front := splitFrontMatter(text)
	if front != "" {
		var meta map[string]any
		if err := yaml.Unmarshal([]byte(front), &meta); err == nil {
			doc.Metadata = meta
		}
	}

	type stackEntry struct {
		level int
		id    string
	}
	var stack []stackEntry

	var bodyLines []string
	var currentSection *Section

	var concepts []Concept
	seenConcepts := map[string]bool{}
	addConcept := func(category, name string) {
		name = strings.TrimSpace(name)
		if name == "" {
			return
		}
		id := category + ":" + strings.ToLower(name)
		if !seenConcepts[id] {
			seenConcepts[id] = true
			concepts = append(concepts, Concept{ID: id, Category: category, Name: name})
		}
	}

	var refs []CodeReference
	seenRefs := map[string]bool{}
	addRef := func(file string, line int) {
		key := file + ":" + strconv.Itoa(line)
		if !seenRefs[key] {
			seenRefs[key] = true
			refs = append(refs, CodeReference{File: file, Line: line})
		}
	}

	flushBody := func() {
		if currentSection != nil {
			currentSection.Body = strings.TrimSpace(strings.Join(bodyLines, "\n"))
			doc.Sections = append(doc.Sections, *currentSection)
		}
		bodyLines = nil
	}

	scanner := bufio.NewScanner(strings.NewReader(body))
	inFence := false

	for scanner.Scan() {
		line := scanner.Text()

		if inFence {
			if fenceEndPattern.MatchString(line) {
				inFence = false
			}
			continue
		}
		if m := fenceStartPattern.FindStringSubmatch(line); m != nil {
			inFence = true
			if m[1] != "" {
				addConcept("language", m[1])
			}
			continue
		}

		if m := atxHeadingPattern.FindStringSubmatch(line); m != nil {
			flushBody()
			level := len(m[1])
			title := strings.TrimSpace(m[2])
			id := headingID(path, len(doc.Sections))
			if doc.Title == "" && level == 1 {
				doc.Title = title
			}
			addConcept("heading", title)

			for len(stack) > 0 && stack[len(stack)-1].level >= level {
				stack = stack[:len(stack)-1]
			}
			parentID := ""
			if len(stack) > 0 {
				parentID = stack[len(stack)-1].id
			}
			stack = append(stack, stackEntry{level: level, id: id})

			s := Section{ID: id, Level: level, Title: title, ParentID: parentID}
			currentSection = &s
			continue
		}

		bodyLines = append(bodyLines, line)

		for _, m := range boldPattern.FindAllStringSubmatch(line, -1) {
			addConcept("emphasis", m[1])
		}
		for _, m := range lineReferencePattern.FindAllStringSubmatch(line, -1) {
			n, _ := strconv.Atoi(m[2])
			addRef(m[1], n)
		}
		for _, m := range atReferencePattern.FindAllStringSubmatch(line, -1) {
			addRef(m[1], 0)
		}
		for _, m := range codeSpanReferencePattern.FindAllStringSubmatch(line, -1) {
			addRef(m[1], 0)
		}
		for _, m := range linkPattern.FindAllStringSubmatch(line, -1) {
			doc.Links = append(doc.Links, m[1])
		}
	}
	flushBody()

	if doc.Title == "" {
		doc.Title = path
	}
	doc.Concepts = concepts
	doc.References = refs
	return doc
}

// splitFrontMatter strips a leading YAML front-matter block delimited by
// "---" lines from text, returning the remaining body and the front
// matter block (without delimiters), or (text, "") if none is present.
func splitFrontMatter(text string) (string, string) {
	lines := strings.Split(text, "\n")
	if len(lines) == 0 || !frontMatterDelimPattern.MatchString(strings.TrimRight(lines[0], "\r")) {
		return text, ""
	}
	for i := 1; i < len(lines); i++ {
		if frontMatterDelimPattern.MatchString(strings.TrimRight(lines[i], "\r")) {
			front := strings.Join(lines[1:i], "\n")
			rest := strings.Join(lines[i+1:], "\n")
			return rest, front
		}
	}
	return text, ""
}

// headingID mints the deterministic section id spec §4.5 requires:
// "<doc_path>#section-<index>".
func headingID(path string, index int) string {
	return path + "#section-" + itoa(index)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf []byte
	for n > 0 {
		buf = append([]byte{byte('0' + n%10)}, buf...)
		n /= 10
	}
	if neg {
		buf = append([]byte{'-'}, buf...)
	}
	return string(buf)
}

// Manager ingests parsed documents into the shared graph, MERGEing
// DocFile/Section/Concept nodes so re-ingestion is idempotent, and linking
// recognized code references and concepts back to the code subgraph — the
// "Doc" specialization of the Base Graph Manager spec §4.5 describes
// shared across code/doc/external-knowledge.
type Manager struct {
	graph graph.Store
	log   *slog.Logger
}

func New(g graph.Store, logger *slog.Logger) *Manager {
	return &Manager{graph: g, log: logging.OrDefault(logger)}
}

// InitializeSchema ensures the doc subgraph's constraints/indexes exist;
// the global unique constraints (DocFile.path, Section.id, Concept.id) are
// owned by pkg/schema, this is limited to anything doc-specific beyond
// that (currently none — kept for symmetry with Code/ExternalKnowledge
// managers and future expansion).
func (m *Manager) InitializeSchema(ctx context.Context) error {
	return nil
}

// Ingest MERGEs doc's DocFile, Section, and Concept nodes, links DocFile to
// each via HAS_SECTION/DEFINES, links code references to existing
// CodeFiles by path containment, and links concepts to existing
// Function/Class entities by case-insensitive name match or containment.
func (m *Manager) Ingest(ctx context.Context, projectID string, doc Document) error {
	metaRaw, err := model.EncodeMetadata(doc.Metadata)
	if err != nil {
		return err
	}
	if _, err := m.graph.MergeNode(ctx, "DocFile", graph.Key{"path": doc.Path}, map[string]any{
		"title": doc.Title, "project_id": projectID, "metadata": string(metaRaw),
	}); err != nil {
		return err
	}

	for _, s := range doc.Sections {
		if _, err := m.graph.MergeNode(ctx, "Section", graph.Key{"id": s.ID}, map[string]any{
			"title": s.Title, "level": s.Level, "body": s.Body, "parent_id": s.ParentID,
		}); err != nil {
			return err
		}
		if err := m.graph.CreateEdge(ctx, "HAS_SECTION", "DocFile", graph.Key{"path": doc.Path}, "Section", graph.Key{"id": s.ID}, nil); err != nil {
			return err
		}
	}

	for _, c := range doc.Concepts {
		if _, err := m.graph.MergeNode(ctx, "Concept", graph.Key{"id": c.ID}, map[string]any{
			"category": c.Category, "name": c.Name,
		}); err != nil {
			return err
		}
		if err := m.graph.CreateEdge(ctx, "DEFINES", "DocFile", graph.Key{"path": doc.Path}, "Concept", graph.Key{"id": c.ID}, nil); err != nil {
			return err
		}
		if err := m.linkConcept(ctx, c); err != nil {
			return err
		}
	}

	for _, ref := range doc.References {
		if err := m.linkReference(ctx, doc.Path, ref); err != nil {
			return err
		}
	}

	m.log.Info("docgraph.ingest.done", "path", doc.Path, "sections", len(doc.Sections), "concepts", len(doc.Concepts), "references", len(doc.References))
	return nil
}

// linkConcept links a Concept to any Function or Class whose name matches
// it case-insensitively or contains it, per spec §4.5's concept-to-code
// linking rule. Best-effort: an unresolved concept is left unlinked.
func (m *Manager) linkConcept(ctx context.Context, c Concept) error {
	wanted := strings.ToLower(c.Name)
	for _, label := range []string{"Function", "Class"} {
		nodes, err := m.graph.ListNodes(ctx, label, nil, 0)
		if err != nil {
			return err
		}
		for _, n := range nodes {
			name, _ := n.Properties["name"].(string)
			if name == "" {
				continue
			}
			lower := strings.ToLower(name)
			if lower != wanted && !strings.Contains(lower, wanted) && !strings.Contains(wanted, lower) {
				continue
			}
			id, _ := n.Properties["id"].(string)
			if err := m.graph.CreateEdge(ctx, "IMPLEMENTED_IN", "Concept", graph.Key{"id": c.ID}, label, graph.Key{"id": id}, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

// linkReference links a code reference to any existing CodeFile whose path
// contains the reference or vice versa (spec §4.5's path-containment
// rule), recording {file, line} on the REFERENCES edge. An unresolved
// reference is silently skipped, since most code-looking tokens in prose
// are not actually tracked files.
func (m *Manager) linkReference(ctx context.Context, docPath string, ref CodeReference) error {
	nodes, err := m.graph.ListNodes(ctx, "CodeFile", nil, 0)
	if err != nil {
		return err
	}
	for _, n := range nodes {
		path, _ := n.Properties["path"].(string)
		if path == "" {
			continue
		}
		if !strings.Contains(path, ref.File) && !strings.Contains(ref.File, path) {
			continue
		}
		props := map[string]any{"file": ref.File}
		if ref.Line > 0 {
			props["line"] = ref.Line
		}
		return m.graph.CreateEdge(ctx, "REFERENCES", "DocFile", graph.Key{"path": docPath}, "CodeFile", graph.Key{"path": path}, props)
	}
	return nil
}

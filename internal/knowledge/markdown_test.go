package knowledge

import (
	"reflect"
	"testing"
)

func TestParseHeadingsFindsATXLevels(t *testing.T) {
	text := "# Title\n\nsome text\n\n## Subsection\n\nmore text\n"
	headings := parseHeadings(text)
	if len(headings) != 2 {
		t.Fatalf("parseHeadings() = %v, want 2 headings", headings)
	}
	if headings[0].level != 1 || headings[0].text != "Title" {
		t.Errorf("headings[0] = %+v, want level 1 'Title'", headings[0])
	}
	if headings[1].level != 2 || headings[1].text != "Subsection" {
		t.Errorf("headings[1] = %+v, want level 2 'Subsection'", headings[1])
	}
}

func TestSplitSectionsWithNoHeadingsReturnsOneRootSection(t *testing.T) {
	sections := splitSections("just plain text, no headings at all")
	if len(sections) != 1 {
		t.Fatalf("splitSections() = %v, want 1 section", sections)
	}
	if len(sections[0].path) != 0 {
		t.Errorf("expected empty path for root section, got %v", sections[0].path)
	}
}

func TestSplitSectionsBuildsNestedBreadcrumb(t *testing.T) {
	text := "# Parent\n\nintro\n\n## Child\n\nchild content\n"
	sections := splitSections(text)

	var childSection *section
	for i := range sections {
		if len(sections[i].path) == 2 {
			childSection = &sections[i]
		}
	}
	if childSection == nil {
		t.Fatalf("expected a section with a two-level breadcrumb, got %+v", sections)
	}
	want := []string{"Parent", "Child"}
	if !reflect.DeepEqual(childSection.path, want) {
		t.Errorf("child path = %v, want %v", childSection.path, want)
	}
}

func TestSplitSectionsKeepsLeadingContentAsRootSection(t *testing.T) {
	text := "intro text before any heading\n\n# First Heading\n\nbody\n"
	sections := splitSections(text)
	if len(sections) < 2 {
		t.Fatalf("splitSections() = %v, want at least 2 sections", sections)
	}
	if sections[0].content != "intro text before any heading" {
		t.Errorf("leading section content = %q", sections[0].content)
	}
}

func TestSplitSectionsPopsStackOnSiblingHeading(t *testing.T) {
	text := "# A\n\n## A1\n\ncontent1\n\n## A2\n\ncontent2\n"
	sections := splitSections(text)

	var a2 *section
	for i := range sections {
		if len(sections[i].path) == 2 && sections[i].path[1] == "A2" {
			a2 = &sections[i]
		}
	}
	if a2 == nil {
		t.Fatalf("expected a section for A2, got %+v", sections)
	}
	if a2.path[0] != "A" {
		t.Errorf("A2's parent = %q, want A", a2.path[0])
	}
}

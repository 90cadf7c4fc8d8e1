package project_test

import (
	"testing"

	"reface/internal/project"
)

func planDocument() project.Document {
	doc := project.NewDocument()
	doc.ProjectID = "project-example-com-1"
	doc.DesignSystem = &project.DesignSystem{Typography: "Inter"}
	doc.Sections = []project.Section{
		{ID: "s1", Name: "Hero"},
		{ID: "s2", Name: "Features"},
		{ID: "s3", Name: "Pricing"},
	}
	return doc
}

func TestMutationsDoNotAliasInput(t *testing.T) {
	doc := planDocument()
	next := project.SetSectionCode(doc, "s1", "<section></section>")
	if doc.Sections[0].GeneratedCode != "" {
		t.Fatal("input snapshot was mutated")
	}
	if next.Sections[0].GeneratedCode == "" {
		t.Fatal("output snapshot missing code")
	}
}

func TestUpdateSectionUnknownIDIsNoop(t *testing.T) {
	doc := planDocument()
	name := "Renamed"
	next := project.UpdateSection(doc, "missing", project.SectionEdit{Name: &name})
	if len(next.Sections) != 3 || next.Sections[0].Name != "Hero" {
		t.Fatal("unknown id should leave sections untouched")
	}
}

func TestUpdateSectionAppliesOnlyProvidedFields(t *testing.T) {
	doc := planDocument()
	desc := "Top banner"
	next := project.UpdateSection(doc, "s1", project.SectionEdit{Description: &desc})
	if next.Sections[0].Description != "Top banner" {
		t.Fatalf("description not applied: %+v", next.Sections[0])
	}
	if next.Sections[0].Name != "Hero" {
		t.Fatalf("name should be unchanged: %+v", next.Sections[0])
	}
}

func TestDeleteSection(t *testing.T) {
	doc := planDocument()
	next := project.DeleteSection(doc, "s2")
	if len(next.Sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(next.Sections))
	}
	if next.Sections[0].ID != "s1" || next.Sections[1].ID != "s3" {
		t.Fatalf("unexpected order after delete: %+v", next.Sections)
	}
}

func TestMoveSectionSwapsNeighbors(t *testing.T) {
	doc := planDocument()
	next := project.MoveSection(doc, "s2", true)
	if next.Sections[0].ID != "s2" || next.Sections[1].ID != "s1" {
		t.Fatalf("expected swap with previous neighbor: %+v", next.Sections)
	}
}

func TestMoveSectionBoundsChecked(t *testing.T) {
	doc := planDocument()
	up := project.MoveSection(doc, "s1", true)
	if up.Sections[0].ID != "s1" {
		t.Fatal("moving the first section up should be a no-op")
	}
	down := project.MoveSection(doc, "s3", false)
	if down.Sections[2].ID != "s3" {
		t.Fatal("moving the last section down should be a no-op")
	}
}

func TestAddCostIgnoresNegativeDeltas(t *testing.T) {
	doc := planDocument()
	doc.TotalCost = 1.5
	next := project.AddCost(doc, -0.5)
	if next.TotalCost != 1.5 {
		t.Fatalf("negative delta must not decrease cost: %v", next.TotalCost)
	}
	next = project.AddCost(next, 0.25)
	if next.TotalCost != 1.75 {
		t.Fatalf("expected 1.75, got %v", next.TotalCost)
	}
}

func TestSetContentImagesRequiresKnownSection(t *testing.T) {
	doc := planDocument()
	next := project.SetContentImages(doc, "missing", []string{"/a.png"})
	if len(next.ContentImages) != 0 {
		t.Fatal("unknown section should not gain content images")
	}
	next = project.SetContentImages(doc, "s1", []string{"/a.png", "/b.png"})
	if got := next.ContentImages["s1"]; len(got) != 2 {
		t.Fatalf("expected 2 refs, got %v", got)
	}
}

func TestCloneIsDeep(t *testing.T) {
	doc := planDocument()
	doc.ContentImages = map[string][]string{"s1": {"/a.png"}}
	clone := doc.Clone()
	clone.Sections[0].Name = "Changed"
	clone.ContentImages["s1"][0] = "/other.png"
	clone.DesignSystem.Typography = "Changed"
	if doc.Sections[0].Name != "Hero" {
		t.Fatal("clone shares sections slice")
	}
	if doc.ContentImages["s1"][0] != "/a.png" {
		t.Fatal("clone shares content image slices")
	}
	if doc.DesignSystem.Typography != "Inter" {
		t.Fatal("clone shares design system pointer")
	}
}

package project

// Mutations are pure functions from one document snapshot to the next. The
// orchestrator serializes their application; nothing here touches shared
// state.

// SetStart seeds the document at run start.
func SetStart(d Document, projectID, description string, mode Mode, sourceURL, targetURL string, screenshots []string) Document {
	out := d.Clone()
	out.ProjectID = projectID
	out.UserDescription = description
	out.Mode = mode
	out.SourceURL = sourceURL
	out.TargetURL = targetURL
	out.SourceScreenshots = append([]string(nil), screenshots...)
	return out
}

// SetTargetScreenshots records best-effort target design captures.
func SetTargetScreenshots(d Document, screenshots []string) Document {
	out := d.Clone()
	out.TargetScreenshots = append([]string(nil), screenshots...)
	return out
}

// SetExtracted records the extraction stage result.
func SetExtracted(d Document, extracted ExtractedData) Document {
	out := d.Clone()
	out.Extracted = &extracted
	return out
}

// SetPlan records the analysis stage result.
func SetPlan(d Document, ds DesignSystem, sections []Section) Document {
	out := d.Clone()
	out.DesignSystem = &ds
	out.Sections = append([]Section(nil), sections...)
	return out
}

// UpdateDesignSystem replaces the design system during plan review.
func UpdateDesignSystem(d Document, ds DesignSystem) Document {
	out := d.Clone()
	out.DesignSystem = &ds
	return out
}

// SectionEdit carries the user-editable fields of a section. Nil fields are
// left unchanged.
type SectionEdit struct {
	Name         *string
	Description  *string
	VisualPrompt *string
}

// UpdateSection applies a plan-review edit to one section by id. Unknown ids
// are a no-op.
func UpdateSection(d Document, id string, edit SectionEdit) Document {
	out := d.Clone()
	i := out.SectionIndex(id)
	if i < 0 {
		return out
	}
	if edit.Name != nil {
		out.Sections[i].Name = *edit.Name
	}
	if edit.Description != nil {
		out.Sections[i].Description = *edit.Description
	}
	if edit.VisualPrompt != nil {
		out.Sections[i].VisualPrompt = *edit.VisualPrompt
	}
	return out
}

// AddSection appends a section to the plan.
func AddSection(d Document, section Section) Document {
	out := d.Clone()
	out.Sections = append(out.Sections, section)
	return out
}

// DeleteSection removes a section by id. Unknown ids are a no-op.
func DeleteSection(d Document, id string) Document {
	out := d.Clone()
	i := out.SectionIndex(id)
	if i < 0 {
		return out
	}
	out.Sections = append(out.Sections[:i], out.Sections[i+1:]...)
	return out
}

// MoveSection swaps a section with its immediate neighbor. Moves past either
// end of the plan are a no-op.
func MoveSection(d Document, id string, up bool) Document {
	out := d.Clone()
	i := out.SectionIndex(id)
	if i < 0 {
		return out
	}
	j := i + 1
	if up {
		j = i - 1
	}
	if j < 0 || j >= len(out.Sections) {
		return out
	}
	out.Sections[i], out.Sections[j] = out.Sections[j], out.Sections[i]
	return out
}

// SetSectionImage records a generated or edited concept image for a section.
func SetSectionImage(d Document, id, imageURL string) Document {
	out := d.Clone()
	if i := out.SectionIndex(id); i >= 0 {
		out.Sections[i].GeneratedImageURL = imageURL
	}
	return out
}

// SetSectionCode records generated code for a section.
func SetSectionCode(d Document, id, code string) Document {
	out := d.Clone()
	if i := out.SectionIndex(id); i >= 0 {
		out.Sections[i].GeneratedCode = code
	}
	return out
}

// SetContentImages records persisted content image references for a section.
func SetContentImages(d Document, id string, refs []string) Document {
	out := d.Clone()
	if out.SectionIndex(id) < 0 {
		return out
	}
	if out.ContentImages == nil {
		out.ContentImages = map[string][]string{}
	}
	out.ContentImages[id] = append([]string(nil), refs...)
	return out
}

// AddPreviewScreenshot appends a rendered section capture.
func AddPreviewScreenshot(d Document, shot PreviewScreenshot) Document {
	out := d.Clone()
	out.PreviewShots = append(out.PreviewShots, shot)
	return out
}

// SetReview records the review stage verdict.
func SetReview(d Document, review ReviewResult) Document {
	out := d.Clone()
	out.CodeReview = &review
	return out
}

// AddCost accumulates estimated spend. Negative deltas are ignored so the
// total never decreases.
func AddCost(d Document, delta float64) Document {
	out := d.Clone()
	if delta > 0 {
		out.TotalCost += delta
	}
	return out
}

package pipeline

import (
	"strings"
	"time"

	"reface/internal/project"
	"reface/internal/services"
)

// Plan editing operations. All of them are only legal while the plan is under
// review; they mutate the document through the reducer and never change the
// pipeline state.

func (o *Orchestrator) editPlan(operation string, patch func(project.Document) project.Document) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != project.StatePlanReview {
		return services.Wrap(services.ErrValidation, string(o.state), operation, "plan is not under review", nil)
	}
	o.doc = patch(o.doc)
	o.doc.UpdatedAt = time.Now().UTC()
	o.notifyLocked()
	return nil
}

// UpdateDesignSystem replaces the design system wholesale.
func (o *Orchestrator) UpdateDesignSystem(ds project.DesignSystem) error {
	return o.editPlan("edit-design-system", func(d project.Document) project.Document {
		return project.UpdateDesignSystem(d, ds)
	})
}

// UpdateSection edits one section's user-editable fields.
func (o *Orchestrator) UpdateSection(id string, edit project.SectionEdit) error {
	return o.editPlan("edit-section", func(d project.Document) project.Document {
		return project.UpdateSection(d, id, edit)
	})
}

// AddSection appends a blank section to the plan.
func (o *Orchestrator) AddSection(name, description string) (string, error) {
	if strings.TrimSpace(name) == "" {
		name = "New Section"
	}
	section := project.Section{
		ID:          project.NewSectionID(time.Now()),
		Name:        name,
		Description: description,
	}
	err := o.editPlan("add-section", func(d project.Document) project.Document {
		return project.AddSection(d, section)
	})
	if err != nil {
		return "", err
	}
	return section.ID, nil
}

// DeleteSection removes a section by id.
func (o *Orchestrator) DeleteSection(id string) error {
	return o.editPlan("delete-section", func(d project.Document) project.Document {
		return project.DeleteSection(d, id)
	})
}

// MoveSection swaps a section with its neighbor. Out-of-range moves no-op.
func (o *Orchestrator) MoveSection(id string, up bool) error {
	return o.editPlan("move-section", func(d project.Document) project.Document {
		return project.MoveSection(d, id, up)
	})
}

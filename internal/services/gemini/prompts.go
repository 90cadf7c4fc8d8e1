package gemini

import (
	"fmt"
	"strings"

	"reface/internal/project"
)

const extractPrompt = `You are auditing an existing website from the attached screenshots.
Return JSON with exactly these keys:
"features": array of strings naming the business features and content the site offers,
"designAnalysis": object describing the current visual design (colors, typography, layout patterns),
"structureAnalysis": object describing the page structure and information hierarchy.`

const analyzePrompt = `You are planning a redesign of the website shown in the attached screenshots.
Return JSON with exactly these keys:
"designSystem": {"palette": [{"hex", "role"}...], "typography": string, "styleDescription": string},
"sections": array of {"id", "name", "description", "visualPrompt"} covering the full page top to bottom.
The first section is the hero and must include the site navigation.`

const reviewPrompt = `You are reviewing rendered previews of generated page sections against the plan.
Return JSON with exactly these keys:
"passedReview": boolean,
"feedback": string summarizing overall quality,
"suggestedFixes": array of {"sectionId", "issue", "suggestion"}; empty when nothing needs fixing.`

func extractContext(urlContext string) string {
	if strings.TrimSpace(urlContext) == "" {
		return extractPrompt
	}
	return extractPrompt + "\nSource URL: " + urlContext
}

func designSummary(ds project.DesignSystem) string {
	var b strings.Builder
	b.WriteString("Design system:\n")
	for _, color := range ds.Palette {
		fmt.Fprintf(&b, "- %s (%s)\n", color.Hex, color.Role)
	}
	if ds.Typography != "" {
		fmt.Fprintf(&b, "Typography: %s\n", ds.Typography)
	}
	if ds.StyleDescription != "" {
		fmt.Fprintf(&b, "Style: %s\n", ds.StyleDescription)
	}
	return b.String()
}

func sectionImagePrompt(section project.Section, ds project.DesignSystem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate a high-fidelity concept image for the %q section of a redesigned website.\n", section.Name)
	if section.Description != "" {
		b.WriteString(section.Description + "\n")
	}
	if section.VisualPrompt != "" {
		b.WriteString(section.VisualPrompt + "\n")
	}
	if strings.EqualFold(section.Name, "hero") {
		b.WriteString("Include the site navigation bar at the top.\n")
	}
	b.WriteString(designSummary(ds))
	return b.String()
}

func contentImagePrompt(section project.Section, ds project.DesignSystem, index int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate supporting content image %d for the %q section of a redesigned website. Photographic or illustrative, no text overlays.\n", index+1, section.Name)
	if section.Description != "" {
		b.WriteString(section.Description + "\n")
	}
	b.WriteString(designSummary(ds))
	return b.String()
}

func codePrompt(req CodeRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a single self-contained HTML section implementing the %q block of a redesigned website. Use Tailwind utility classes and lucide icons. Return only the HTML for this section.\n", req.Section.Name)
	if req.Section.Description != "" {
		b.WriteString("Section brief: " + req.Section.Description + "\n")
	}
	if req.Description != "" {
		b.WriteString("Project brief: " + req.Description + "\n")
	}
	if strings.EqualFold(req.Section.Name, "hero") {
		b.WriteString("This is the hero section; include the site navigation bar.\n")
	}
	b.WriteString(designSummary(req.DesignSystem))
	if len(req.ContentImageRefs) > 0 {
		b.WriteString("Use these image URLs where the section needs imagery:\n")
		for _, ref := range req.ContentImageRefs {
			b.WriteString("- " + ref + "\n")
		}
	}
	if len(req.Extracted.Features) > 0 {
		b.WriteString("Site features: " + strings.Join(req.Extracted.Features, ", ") + "\n")
	}
	return b.String()
}

func reviewContext(req ReviewRequest) string {
	var b strings.Builder
	b.WriteString(reviewPrompt + "\n")
	if req.Description != "" {
		b.WriteString("Project brief: " + req.Description + "\n")
	}
	b.WriteString("Planned sections, in order:\n")
	for _, section := range req.Sections {
		fmt.Fprintf(&b, "- %s: %s (%s)\n", section.ID, section.Name, section.Description)
	}
	b.WriteString(designSummary(req.DesignSystem))
	return b.String()
}

func fixPrompt(req FixRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Patch the HTML of the %q section to address a review finding. Return only the full corrected HTML for the section.\n", req.Section.Name)
	b.WriteString("Issue: " + req.Issue + "\n")
	if req.Suggestion != "" {
		b.WriteString("Suggestion: " + req.Suggestion + "\n")
	}
	b.WriteString(designSummary(req.DesignSystem))
	b.WriteString("Current HTML:\n" + req.Section.GeneratedCode + "\n")
	return b.String()
}

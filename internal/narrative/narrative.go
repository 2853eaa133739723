// Package narrative turns a final verdict and its evidence into free-text
// guidance via a chat-completion model. It runs strictly after verdict
// aggregation and can never change the verdict; a failure here degrades to
// a scan without a narrative.
package narrative

import (
	"context"
	"fmt"
	"strings"

	"github.com/repscan/app-scanner/internal/scan"
)

// Placeholder is returned when no model credential is configured.
const Placeholder = "AI analysis is not configured (API key missing)."

// EvidenceSummary carries the detection ratio from whichever provider
// found a record.
type EvidenceSummary struct {
	Provider       string
	DetectionCount int
	TotalEngines   int
}

// Request is the input to narrative generation. Verdict is the already
// final verdict; generation consumes it, never produces it.
type Request struct {
	Verdict     scan.Verdict
	DisplayName string
	TargetKind  scan.TargetKind
	Evidence    *EvidenceSummary
}

// Generator produces guidance text for a completed scan.
type Generator interface {
	// Generate returns the narrative text, or an error the caller is
	// expected to swallow. Unconfigured generators return Placeholder
	// without network I/O.
	Generate(ctx context.Context, req Request) (string, error)
}

// BuildPrompt renders the single natural-language prompt sent to the
// model: target name, final verdict, detection ratio, and the required
// response structure. For URL targets it additionally asks for a
// supportive-resources note when the site appears to be adult content;
// that is a content-policy addition independent of the verdict logic.
func BuildPrompt(req Request) string {
	var b strings.Builder

	target := "file"
	if req.TargetKind == scan.TargetURL {
		target = "URL"
	}
	fmt.Fprintf(&b, "You are a cybersecurity professional. Analyze the following information: the %s %q received a final verdict of %q.",
		target, req.DisplayName, req.Verdict)
	if req.Evidence != nil {
		fmt.Fprintf(&b, " On %s, %d out of %d engines flagged it.",
			req.Evidence.Provider, req.Evidence.DetectionCount, req.Evidence.TotalEngines)
	}

	b.WriteString(`

Provide professional, detailed guidance in Markdown with this structure:
1. **Risk Level:** (Low, Medium, High, or Critical).
2. **Risk Explanation:** describe the potential impact and the reasoning behind the verdict.
3. **Recommendation:** a clear action for the user to take (e.g. "Delete this file immediately").
4. **Prevention Tips:** 2 tips to avoid future threats.`)

	if req.TargetKind == scan.TargetURL {
		b.WriteString(`

**NOTE (adult content):** if the URL appears to be an adult-content site, add a section called "Additional Note" with the following message: "If accessing this kind of content is causing discomfort or problems in your life, know that resources are available. Consider talking to a mental health professional, such as a psychologist, as a positive step."`)
	}

	return b.String()
}

package cli

import (
	"fmt"

	"github.com/AndreyAkinshin/testops/internal/dispatcher"
	"github.com/AndreyAkinshin/testops/internal/model"
	"github.com/AndreyAkinshin/testops/internal/testparser"
)

// maxListedFailures bounds the failed tests listed in a summary.
const maxListedFailures = 20

// printTestSummary prints result counts and the failed tests.
func printTestSummary(counts *testparser.TestCounts) {
	out.SummaryHeader("Test Summary")

	out.SummaryPassed(titleCase.String(string(model.StatusPassed)), fmt.Sprintf("%d", counts.Passed))
	if counts.Failed > 0 {
		out.SummaryFailed(titleCase.String(string(model.StatusFailed)), fmt.Sprintf("%d", counts.Failed))
	}
	if counts.Skipped > 0 {
		out.SummaryItem(titleCase.String(string(model.StatusSkipped)), fmt.Sprintf("%d", counts.Skipped))
	}
	if counts.Other > 0 {
		out.SummaryItem("Other", fmt.Sprintf("%d", counts.Other))
	}
	out.SummaryItem("Total", fmt.Sprintf("%d", counts.Total))

	if len(counts.FailedTests) > 0 {
		out.Println("")
		out.SummarySectionLabel("Failed Tests:")
		for i, ft := range counts.FailedTests {
			if i == maxListedFailures {
				out.SummaryItem("  ...", fmt.Sprintf("%d more", len(counts.FailedTests)-i))
				break
			}
			out.SummaryFailed("  "+ft.Name, ft.Reason)
		}
	}
}

// printProjectSummary prints one line per project and the final verdict.
// It returns the exit code for the outcomes.
func printProjectSummary(outcomes dispatcher.Outcomes) int {
	out.Println("")
	out.SummarySectionLabel("Projects:")
	for _, oc := range outcomes {
		errMsg := ""
		if oc.Err != nil {
			errMsg = "failed"
		}
		out.SummaryProject(oc.Code, oc.RunID, oc.Sent, errMsg)
	}
	out.Println("")

	failed := outcomes.Failed()
	if len(failed) == 0 {
		out.FinalSuccess("Reported to %d project(s).", len(outcomes))
		return 0
	}
	for _, oc := range outcomes {
		if oc.Err != nil {
			out.ProjectFailed(oc.Code, "publish", oc.Err)
		}
	}
	out.FinalFailure("%d of %d project(s) failed.", len(failed), len(outcomes))
	return 1
}

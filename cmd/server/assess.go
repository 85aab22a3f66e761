package main

import (
	"errors"
	"fmt"
	"io"

	"ALZHEIMER_MRI/go-frontend/internal/assessment"
	"ALZHEIMER_MRI/go-frontend/internal/services"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var errAssessmentFailed = errors.New("assessment failed")

func newAssessCmd() *cobra.Command {
	var values [assessment.StepCount]string

	cmd := &cobra.Command{
		Use:   "assess",
		Short: "Submit one clinical assessment and print the result",
		Long: `assess sends the five clinical values to the prediction service once.
Missing or non-numeric values are sent as 0, like blank form fields.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var data assessment.StepData
			for i, v := range values {
				data.Set(i+1, v)
			}
			return runAssess(cmd, data)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&values[0], "functional-assessment", "", "FunctionalAssessment score")
	flags.StringVar(&values[1], "adl", "", "ADL score")
	flags.StringVar(&values[2], "memory-complaints", "", "MemoryComplaints (0 or 1)")
	flags.StringVar(&values[3], "mmse", "", "MMSE score")
	flags.StringVar(&values[4], "behavioral-problems", "", "BehavioralProblems (0 or 1)")
	return cmd
}

func runAssess(cmd *cobra.Command, data assessment.StepData) error {
	predictor := services.NewPredictor(cfg, logger)
	flow := assessment.NewFlow(predictor, assessment.WithLogger(logger.With(zap.String("source", "cli"))))

	res, err := flow.Submit(cmd.Context(), data)
	if err != nil {
		for _, notice := range flow.TakeNotifications() {
			fmt.Fprintln(cmd.ErrOrStderr(), notice)
		}
		return errAssessmentFailed
	}

	printResult(cmd.OutOrStdout(), res)
	return nil
}

func printResult(w io.Writer, res *assessment.Result) {
	fmt.Fprintf(w, "Classification: %s\n", res.Classification)
	fmt.Fprintf(w, "Confidence:     %s%%\n", res.Confidence)
	fmt.Fprintf(w, "Severity:       %s\n", res.Severity)
	fmt.Fprintf(w, "Explanation:    %s\n", res.Explanation)
}

package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ukydev/car-maintenance/internal/maintenance"
	"github.com/ukydev/car-maintenance/internal/models"
)

type predictResult struct {
	VehicleID string                   `json:"vehicle_id"`
	Tasks     []models.MaintenanceTask `json:"tasks"`
	Error     string                   `json:"error,omitempty"`
}

func (c *CLI) newPredictCmd() *cobra.Command {
	var (
		all     bool
		exclude []string
	)
	cmd := &cobra.Command{
		Use:   "predict [vehicle-id...]",
		Short: "Predict and store maintenance tasks for vehicles",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case all && len(args) > 0:
				return errors.New("pass vehicle ids or --all, not both")
			case !all && len(args) == 0:
				return errors.New("no vehicles to predict: pass vehicle ids or --all")
			}
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			excluded := make([]models.TaskType, 0, len(exclude))
			for _, e := range exclude {
				excluded = append(excluded, models.TaskType(e))
			}

			var results []maintenance.VehicleResult
			if all {
				if results, err = a.Maintenance.PredictFleet(cmd.Context(), excluded); err != nil {
					return err
				}
			} else {
				results = a.Maintenance.PredictAll(cmd.Context(), args, excluded)
			}

			out := make([]predictResult, 0, len(results))
			failed := 0
			for _, res := range results {
				r := predictResult{VehicleID: res.VehicleID, Tasks: res.Tasks}
				if res.Err != nil {
					r.Error = res.Err.Error()
					failed++
				}
				out = append(out, r)
			}
			if err := printJSON(cmd, out); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d vehicles failed", failed, len(results))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Predict every vehicle in the store")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "Task types to skip")
	return cmd
}

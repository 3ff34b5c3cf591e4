package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"titanic-survival/internal/features"
	"titanic-survival/internal/ml"
)

func newPredictCmd() *cobra.Command {
	var (
		passenger features.Passenger
		modelDir  string
	)

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Score a single passenger against the published model",
		Example: `  titanic predict --pclass 1 --sex female --age 29 --fare 211.34 --embarked S
  titanic predict --pclass 3 --sex male --age 22 --sibsp 1 --fare 7.25 --name "Braund, Mr. Owen Harris"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := settings.ModelDir
			if modelDir != "" {
				dir = modelDir
			}

			req := ml.PredictRequest{
				Pclass:   &passenger.Pclass,
				Sex:      &passenger.Sex,
				Age:      &passenger.Age,
				SibSp:    &passenger.SibSp,
				Parch:    &passenger.Parch,
				Fare:     &passenger.Fare,
				Embarked: &passenger.Embarked,
				Cabin:    &passenger.Cabin,
				Name:     &passenger.Name,
			}
			if err := req.Bind(nil); err != nil {
				return err
			}

			artifacts, err := ml.LoadArtifacts(dir)
			if err != nil {
				return err
			}
			result, err := ml.NewPredictor(artifacts, nil).Predict(req.Passenger())
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}

	cmd.Flags().IntVar(&passenger.Pclass, "pclass", 3, "ticket class (1, 2 or 3)")
	cmd.Flags().StringVar(&passenger.Sex, "sex", "", "male or female")
	cmd.Flags().Float64Var(&passenger.Age, "age", 30, "age in years")
	cmd.Flags().IntVar(&passenger.SibSp, "sibsp", 0, "siblings and spouses aboard")
	cmd.Flags().IntVar(&passenger.Parch, "parch", 0, "parents and children aboard")
	cmd.Flags().Float64Var(&passenger.Fare, "fare", 0, "ticket fare")
	cmd.Flags().StringVar(&passenger.Embarked, "embarked", "S", "port of embarkation (C, Q or S)")
	cmd.Flags().StringVar(&passenger.Cabin, "cabin", "", "cabin number")
	cmd.Flags().StringVar(&passenger.Name, "name", "", "full passenger name")
	cmd.Flags().StringVar(&modelDir, "model-dir", "", "artifact directory (overrides MODEL_DIR)")
	return cmd
}

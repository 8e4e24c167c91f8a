package main

import (
	"context"
	"fmt"
	"strings"

	"go-relief-hub/internal/app"
	"go-relief-hub/internal/model"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// catalogFile 是目录导入文件的结构 (yaml 或 json)
//
//	countries:
//	  - name: Nepal
//	    iso: NP
//	    districts: [Kathmandu, Lalitpur]
//	hazard_types: [Earthquake, Flood]
//	actions:
//	  - name: Search and rescue
//	    category: Response
type catalogFile struct {
	Countries []struct {
		Name      string   `mapstructure:"name"`
		ISO       string   `mapstructure:"iso"`
		Districts []string `mapstructure:"districts"`
	} `mapstructure:"countries"`
	HazardTypes []string `mapstructure:"hazard_types"`
	Actions     []struct {
		Name     string `mapstructure:"name"`
		Category string `mapstructure:"category"`
	} `mapstructure:"actions"`
}

type catalogCounts struct {
	countries, districts, hazards, actions int
}

func loadCatalog(path string) (*catalogFile, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var f catalogFile
	if err := v.Unmarshal(&f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return &f, nil
}

func importCatalog(ctx context.Context, a *app.App, f *catalogFile) (catalogCounts, error) {
	var n catalogCounts
	for _, c := range f.Countries {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return n, fmt.Errorf("country #%d has no name", n.countries+1)
		}
		country := &model.Country{Name: name, ISO: strings.ToUpper(strings.TrimSpace(c.ISO))}
		if err := a.Geo.CreateCountry(ctx, country); err != nil {
			return n, fmt.Errorf("create country %s: %w", name, err)
		}
		n.countries++
		for _, d := range c.Districts {
			if err := a.Geo.CreateDistrict(ctx, &model.District{Name: strings.TrimSpace(d), CountryID: country.ID}); err != nil {
				return n, fmt.Errorf("create district %s: %w", d, err)
			}
			n.districts++
		}
	}
	for _, h := range f.HazardTypes {
		if err := a.Geo.CreateDisasterType(ctx, &model.DisasterType{Name: strings.TrimSpace(h)}); err != nil {
			return n, fmt.Errorf("create hazard type %s: %w", h, err)
		}
		n.hazards++
	}
	for _, act := range f.Actions {
		if err := a.Geo.CreateFlashAction(ctx, &model.FlashAction{Name: strings.TrimSpace(act.Name), Category: act.Category}); err != nil {
			return n, fmt.Errorf("create action %s: %w", act.Name, err)
		}
		n.actions++
	}
	return n, nil
}

func newCatalogCommand(cc *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage countries, districts, hazard types and actions",
	}
	catalogCmd.AddCommand(&cobra.Command{
		Use:   "import <file>",
		Short: "Import catalogue entries from a yaml or json file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := loadCatalog(args[0])
			if err != nil {
				return err
			}
			return cc.withApp(cmd, func(a *app.App) error {
				n, err := importCatalog(cmd.Context(), a, f)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Entry", "Imported"},
					[][]string{
						{"countries", fmt.Sprint(n.countries)},
						{"districts", fmt.Sprint(n.districts)},
						{"hazard types", fmt.Sprint(n.hazards)},
						{"actions", fmt.Sprint(n.actions)},
					},
					[]columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	})
	return catalogCmd
}

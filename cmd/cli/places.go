package main

import (
	"errors"

	"github.com/spf13/cobra"
)

var errNoMaps = errors.New("maps.api_key not configured")

var placesCmd = &cobra.Command{
	Use:   "places",
	Short: "Look up places with the maps API",
}

var placesLookupCmd = &cobra.Command{
	Use:   "lookup <place-id>",
	Short: "Show the details and business status of a place",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if svc.Places == nil {
			return errNoMaps
		}
		p, err := svc.Places.Lookup(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, p)
	},
}

var placesSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find candidate places for a name and city",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if svc.Places == nil {
			return errNoMaps
		}
		found, err := svc.Places.Search(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, found)
	},
}

func init() {
	placesCmd.AddCommand(placesLookupCmd, placesSearchCmd)
}

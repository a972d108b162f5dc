package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "facekiosk",
	Short: "A check-in kiosk that authenticates people by face verification",
	Long: `Face Kiosk is a check-in/check-out web application. Guests enroll
with a username and a reference photo; later visits are authenticated
by comparing a live camera capture against the stored reference through
an external face-recognition engine.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-kiosk/internal/config"
	"github.com/kozaktomas/face-kiosk/internal/directory"
	"github.com/kozaktomas/face-kiosk/internal/faceid"
	"github.com/kozaktomas/face-kiosk/internal/imaging"
	"github.com/kozaktomas/face-kiosk/internal/web/middleware"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage enrolled identities",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrolled identities",
	RunE:  runUsersList,
}

var usersCreateCmd = &cobra.Command{
	Use:   "create [username]",
	Short: "Enroll an identity from a photo file",
	Long: `Enroll an identity directly, bypassing the web registration flow.
This is the way to bootstrap the first administrator account.`,
	Args: cobra.ExactArgs(1),
	RunE: runUsersCreate,
}

var usersDeleteCmd = &cobra.Command{
	Use:   "delete [username]",
	Short: "Delete an enrolled identity",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsersDelete,
}

var usersReindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Recompute cached reference embeddings for all identities",
	Long: `Recompute the cached face embedding of every enrolled identity from
its reference image. Run this after changing the embedding engine or
its model.`,
	RunE: runUsersReindex,
}

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(usersListCmd)
	usersCmd.AddCommand(usersCreateCmd)
	usersCmd.AddCommand(usersDeleteCmd)
	usersCmd.AddCommand(usersReindexCmd)

	usersCreateCmd.Flags().String("image", "", "Path to the reference photo (required)")
	usersCreateCmd.Flags().String("role", "guest", "Role of the new identity (guest or admin)")
	usersCreateCmd.MarkFlagRequired("image")

	usersReindexCmd.Flags().Bool("force", false, "Recompute even when a cached embedding exists")
}

func runUsersList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	be, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer be.close()

	identities, err := be.store.List(context.Background(), "")
	if err != nil {
		return fmt.Errorf("failed to list identities: %w", err)
	}

	if len(identities) == 0 {
		fmt.Println("No identities enrolled")
		return nil
	}

	fmt.Printf("%-20s %-8s %-10s %s\n", "USERNAME", "ROLE", "EMBEDDING", "CREATED")
	for _, identity := range identities {
		embedding := "cached"
		if len(identity.ReferenceEmbedding) == 0 {
			embedding = "missing"
		}
		fmt.Printf("%-20s %-8s %-10s %s\n",
			identity.Username,
			identity.Role,
			embedding,
			identity.CreatedAt.Format(time.RFC3339),
		)
	}
	fmt.Printf("\n%d identities\n", len(identities))
	return nil
}

func runUsersCreate(cmd *cobra.Command, args []string) error {
	username := directory.NormalizeUsername(args[0])
	if username == "" {
		return errors.New("username is required")
	}
	imagePath := mustGetString(cmd, "image")
	role := directory.ParseRole(mustGetString(cmd, "role"))

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	be, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer be.close()

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}
	normalized, err := imaging.Normalize(data, imaging.MaxImageSize)
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}

	ctx := context.Background()
	engine := faceid.NewClient(cfg.Engine.URL, cfg.Engine.Threshold)

	embedding, err := engine.Embed(ctx, normalized)
	if err != nil {
		if errors.Is(err, faceid.ErrNoFace) {
			return errors.New("no usable face found in the image")
		}
		fmt.Printf("Warning: embedding failed, storing without cache: %v\n", err)
		embedding = nil
	}

	identity := &directory.Identity{
		ID:                 uuid.NewString(),
		Username:           username,
		Role:               role,
		ReferenceImage:     imaging.EncodeDataURI(normalized),
		ReferenceEmbedding: embedding,
		CreatedAt:          time.Now().UTC(),
	}

	if err := be.store.Create(ctx, identity); err != nil {
		if errors.Is(err, directory.ErrUsernameTaken) {
			return fmt.Errorf("username %q is already taken", username)
		}
		return fmt.Errorf("failed to create identity: %w", err)
	}

	fmt.Printf("Enrolled %s (%s)\n", username, role)
	return nil
}

func runUsersDelete(cmd *cobra.Command, args []string) error {
	username := directory.NormalizeUsername(args[0])

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	be, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer be.close()

	if err := deleteIdentity(context.Background(), be.store, be.sessionRepo, username); err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return fmt.Errorf("identity %q not found", username)
		}
		return fmt.Errorf("failed to delete identity: %w", err)
	}

	fmt.Printf("Deleted %s\n", username)
	return nil
}

// deleteIdentity removes the record and every persisted session bound
// to it, so a stale cookie cannot outlive the account.
func deleteIdentity(ctx context.Context, store directory.Store, sessions middleware.SessionRepository, username string) error {
	identity, err := store.GetByUsername(ctx, username)
	if err != nil {
		return err
	}

	if err := store.Delete(ctx, identity.Username); err != nil {
		return err
	}

	if sessions != nil {
		if err := sessions.DeleteByIdentity(ctx, identity.ID); err != nil {
			return fmt.Errorf("failed to delete sessions: %w", err)
		}
	}
	return nil
}

func runUsersReindex(cmd *cobra.Command, args []string) error {
	force := mustGetBool(cmd, "force")

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	be, err := openBackend(cfg)
	if err != nil {
		return err
	}
	defer be.close()

	ctx := context.Background()
	engine := faceid.NewClient(cfg.Engine.URL, cfg.Engine.Threshold)

	identities, err := be.store.List(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to list identities: %w", err)
	}

	var pending []directory.Identity
	for _, identity := range identities {
		if force || len(identity.ReferenceEmbedding) == 0 {
			pending = append(pending, identity)
		}
	}
	if len(pending) == 0 {
		fmt.Println("All identities already have cached embeddings")
		return nil
	}

	bar := progressbar.NewOptions(len(pending),
		progressbar.OptionSetDescription("Computing embeddings"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("identities"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
	)

	failed := 0
	for _, identity := range pending {
		bar.Add(1)

		image, err := imaging.DecodeDataURI(identity.ReferenceImage)
		if err != nil {
			fmt.Printf("\nWarning: %s has an undecodable reference image: %v\n", identity.Username, err)
			failed++
			continue
		}

		embedding, err := engine.Embed(ctx, image)
		if err != nil {
			fmt.Printf("\nWarning: embedding failed for %s: %v\n", identity.Username, err)
			failed++
			continue
		}

		if err := be.store.UpdateEmbedding(ctx, identity.ID, embedding); err != nil {
			fmt.Printf("\nWarning: failed to store embedding for %s: %v\n", identity.Username, err)
			failed++
		}
	}

	fmt.Printf("\nReindexed %d identities (%d failed)\n", len(pending)-failed, failed)
	return nil
}

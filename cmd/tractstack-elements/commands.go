package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/AtRiskMedia/tractstack-elements/internal/application/container"
	"github.com/AtRiskMedia/tractstack-elements/internal/application/startup"
	"github.com/AtRiskMedia/tractstack-elements/internal/domain/user"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/persistence/database"
	"github.com/AtRiskMedia/tractstack-elements/internal/infrastructure/security"
	"github.com/AtRiskMedia/tractstack-elements/pkg/config"
)

var (
	rootCmd = &cobra.Command{
		Use:   "tractstack-elements",
		Short: "Versioned multi-language element store with URL resolution",
		Long: `tractstack-elements serves a tree of versioned content elements,
resolves URLs to elements and applies editor transactions.`,
		SilenceUsage: true,
	}
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Runs the HTTP API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return startup.Initialize()
		},
	}
	initDBCmd = &cobra.Command{
		Use:   "init-db",
		Short: "Creates the schema and the root element",
		Args:  cobra.NoArgs,
		RunE:  runInitDB,
	}
	rebuildURLsCmd = &cobra.Command{
		Use:   "rebuild-urls",
		Short: "Rebuilds the URL mapping from persisted elements",
		Args:  cobra.NoArgs,
		RunE:  runRebuildURLs,
	}
	resolveCmd = &cobra.Command{
		Use:   "resolve [path]",
		Short: "Prints the element a URL path resolves to",
		Args:  cobra.ExactArgs(1),
		RunE:  runResolve,
	}
	tokenCmd = &cobra.Command{
		Use:   "token [author-id] [name]",
		Short: "Issues a bearer token for an author",
		Args:  cobra.ExactArgs(2),
		RunE:  runToken,
	}
	tokenRoles []string
	tokenTTL   time.Duration
)

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(initDBCmd)
	rootCmd.AddCommand(rebuildURLsCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().StringSliceVar(&tokenRoles, "role", []string{user.RoleEditor}, "Roles carried by the token (editor, admin)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "Token lifetime (defaults to TOKEN_TTL)")
}

func runInitDB(cmd *cobra.Command, args []string) error {
	logger, err := startup.NewLogger()
	if err != nil {
		return err
	}
	defer logger.Close()

	opts := database.OptionsFromConfig()
	if opts.Driver == container.DriverMemory {
		return fmt.Errorf("storage driver %q has no schema to initialize", opts.Driver)
	}
	db, err := database.Open(opts, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := container.InitSchema(db, logger); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema ready: %v\n", db.ConnectionInfo())
	return nil
}

func runRebuildURLs(cmd *cobra.Command, args []string) error {
	return withContainer(func(c *container.Container) error {
		if err := c.URLMappingService.Rebuild(); err != nil {
			return err
		}
		return printJSON(cmd, c.URLMappingService.Stats())
	})
}

func runResolve(cmd *cobra.Command, args []string) error {
	return withContainer(func(c *container.Container) error {
		page, err := c.ElementService.Resolve(args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, page)
	})
}

func runToken(cmd *cobra.Command, args []string) error {
	if config.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is not set")
	}
	ttl := tokenTTL
	if ttl == 0 {
		ttl = config.TokenTTL
	}
	author := &user.User{ID: args[0], Name: args[1], Roles: tokenRoles}
	token, err := security.GenerateAuthorToken(author, config.JWTSecret, ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

func withContainer(fn func(*container.Container) error) error {
	logger, err := startup.NewLogger()
	if err != nil {
		return err
	}
	defer logger.Close()

	c, err := container.New(container.OptionsFromConfig(), logger)
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(c)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

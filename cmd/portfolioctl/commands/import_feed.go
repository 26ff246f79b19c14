package commands

import (
	"strings"

	"portfolio/cmd/portfolioctl/output"
	"portfolio/internal/db"
	"portfolio/internal/services"
	"portfolio/internal/utils"

	"github.com/spf13/cobra"
)

var (
	// import-feed flags
	importPublish bool
	importTags    string
	importLimit   int
)

// importFeedCmd imports posts from a feed
var importFeedCmd = &cobra.Command{
	Use:   "import-feed URL",
	Short: "Import blog posts from an RSS/Atom feed",
	Long: `Import every item of a feed as a blog post. Items whose link was already
imported are skipped, so the command can be re-run safely.

Examples:
  portfolioctl import-feed https://example.com/feed.xml
  portfolioctl import-feed https://example.com/feed.xml --publish --tags go,notes --limit 5`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		conn, err := db.Open(cfg.Database)
		if err != nil {
			return err
		}

		// 站点进程各自持有缓存，这里只是满足导入器的依赖
		cache, err := utils.NewPageCache(16)
		if err != nil {
			return err
		}

		importer := services.NewFeedImporter(conn, services.NewCrawlerService(), cache)
		result, err := importer.Import(cmd.Context(), args[0], services.ImportOptions{
			Publish: importPublish,
			Tags:    strings.Split(importTags, ","),
			Limit:   importLimit,
		})
		if err != nil {
			output.Error("import failed: %v", err)
			return err
		}

		output.Success("%s: %d imported, %d skipped", result.FeedTitle, result.Created, result.Skipped)
		if !importPublish && result.Created > 0 {
			output.Muted("posts were saved as drafts; publish them from /admin/posts")
		}
		return nil
	},
}

func init() {
	importFeedCmd.Flags().BoolVar(&importPublish, "publish", false, "Publish imported posts immediately")
	importFeedCmd.Flags().StringVar(&importTags, "tags", "", "Comma separated tags added to every post")
	importFeedCmd.Flags().IntVar(&importLimit, "limit", 0, "Import at most N items (0 = all)")
	rootCmd.AddCommand(importFeedCmd)
}

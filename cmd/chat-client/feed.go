package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/omochice/realtime-messenger/internal/api"
	"github.com/omochice/realtime-messenger/internal/feed"
	"github.com/omochice/realtime-messenger/internal/logging"
)

func newFeedCommand(opts *options) *cobra.Command {
	feedCmd := &cobra.Command{
		Use:   "feed",
		Short: "Post feed helpers: likes, post validation and image previews",
	}

	var postID, commentID int
	likeCmd := &cobra.Command{
		Use:   "like",
		Short: "Toggle a like on a post or a comment and print the new count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (postID > 0) == (commentID > 0) {
				return errors.New("exactly one of --post or --comment is required")
			}
			cfg, err := loadConfig(*opts)
			if err != nil {
				return err
			}
			if err := logging.Setup(cfg.Log.Level, os.Stderr); err != nil {
				return err
			}
			if cfg.Origin == "" {
				return errors.New("origin is required")
			}
			c, err := api.New(cfg.Origin,
				api.WithSession(cfg.Session),
				api.WithTimeout(cfg.HTTPTimeout),
				api.WithRetryMax(cfg.HTTPRetries),
			)
			if err != nil {
				return err
			}

			var n int
			if postID > 0 {
				n, err = c.LikePost(cmd.Context(), postID)
			} else {
				n, err = c.LikeComment(cmd.Context(), commentID)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
	likeCmd.Flags().IntVar(&postID, "post", 0, "post id")
	likeCmd.Flags().IntVar(&commentID, "comment", 0, "comment id")

	var tags []string
	checkCmd := &cobra.Command{
		Use:   "check CONTENT",
		Short: "Report whether a post with these tags and content may be submitted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			content := ""
			if len(args) == 1 {
				content = args[0]
			}
			if !feed.CanSubmitPost(tags, content) {
				return errors.New("a post needs at least one tag and some content")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
	checkCmd.Flags().StringSliceVar(&tags, "tag", nil, "post tag, repeatable")

	previewCmd := &cobra.Command{
		Use:   "preview IMAGE",
		Short: "Print an image as a data URI",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uri, err := feed.PreviewDataURI(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), uri)
			return nil
		},
	}

	feedCmd.AddCommand(likeCmd, checkCmd, previewCmd)
	return feedCmd
}

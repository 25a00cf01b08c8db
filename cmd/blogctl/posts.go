package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"scribe/models"
	"scribe/views"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func (a *app) listCmd() *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List posts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list := views.NewPostListView(a.api)
			if err := list.Load(cmd.Context()); err != nil {
				return err
			}
			list.SetQuery(search)
			printList(cmd.OutOrStdout(), list.Visible())
			return nil
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "only posts whose title or content contains this text")
	return cmd
}

func (a *app) showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one post with its comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			detail, err := a.loadDetail(cmd, args[0])
			if err != nil {
				return err
			}
			printPost(cmd.OutOrStdout(), detail.Post(), detail.CanMutate())
			return nil
		},
	}
}

func (a *app) createCmd() *cobra.Command {
	var title, content, imagePath string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Publish a new post",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var image io.Reader
			var imageName string
			if imagePath != "" {
				f, err := os.Open(imagePath)
				if err != nil {
					return err
				}
				defer f.Close()
				image, imageName = f, filepath.Base(imagePath)
			}

			id, err := views.NewPostCreateView(a.api, a.session).Submit(cmd.Context(), title, content, image, imageName)
			if err != nil {
				return err
			}
			success(cmd, "Created post %s", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "post title")
	cmd.Flags().StringVar(&content, "content", "", "post body")
	cmd.Flags().StringVar(&imagePath, "image", "", "optional image file")
	return cmd
}

func (a *app) editCmd() *cobra.Command {
	var title, content string
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change the title and content of your post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			detail, err := a.loadDetail(cmd, args[0])
			if err != nil {
				return err
			}
			if err := detail.BeginEdit(); err != nil {
				return err
			}
			draftTitle, draftContent := detail.Draft()
			if cmd.Flags().Changed("title") {
				draftTitle = title
			}
			if cmd.Flags().Changed("content") {
				draftContent = content
			}
			detail.SetDraft(draftTitle, draftContent)
			if err := detail.Save(cmd.Context()); err != nil {
				return err
			}
			success(cmd, "Updated %q", detail.Post().Title)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&content, "content", "", "new body")
	return cmd
}

func (a *app) likeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "like ID",
		Short: "Like a post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			detail, err := a.loadDetail(cmd, args[0])
			if err != nil {
				return err
			}
			if err := detail.Like(cmd.Context()); err != nil {
				return err
			}
			success(cmd, "❤️  %d likes", detail.Post().Likes)
			return nil
		},
	}
}

func (a *app) commentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "comment ID TEXT",
		Short: "Comment on a post",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			detail, err := a.loadDetail(cmd, args[0])
			if err != nil {
				return err
			}
			if err := detail.Comment(cmd.Context(), strings.Join(args[1:], " ")); err != nil {
				return err
			}
			success(cmd, "Comment added (%d total)", detail.Post().CommentCount())
			return nil
		},
	}
}

func (a *app) deleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete your post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			detail, err := a.loadDetail(cmd, args[0])
			if err != nil {
				return err
			}
			title := detail.Post().Title
			confirm := func() bool {
				return yes || askYesNo(cmd, fmt.Sprintf("Delete %q?", title))
			}
			if err := detail.Delete(cmd.Context(), confirm); err != nil {
				if errors.Is(err, views.ErrDeleteCancelled) {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing deleted")
					return nil
				}
				return err
			}
			success(cmd, "Deleted %q", title)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func (a *app) loadDetail(cmd *cobra.Command, id string) (*views.PostDetailView, error) {
	detail := views.NewPostDetailView(a.api, a.session)
	if err := detail.Load(cmd.Context(), id); err != nil {
		return nil, err
	}
	return detail, nil
}

func askYesNo(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", question)
	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func printList(w io.Writer, posts []*models.Post) {
	if len(posts) == 0 {
		fmt.Fprintln(w, faint("no posts"))
		return
	}
	bold := color.New(color.Bold)
	for _, p := range posts {
		bold.Fprintf(w, "%s  ", p.Title)
		fmt.Fprintln(w, faint("%s · %s · ❤️ %d · 💬 %d", p.ID.Hex(), p.AuthorEmail, p.Likes, p.CommentCount()))
	}
}

func printPost(w io.Writer, p *models.Post, mine bool) {
	color.New(color.Bold).Fprintln(w, p.Title)
	byline := fmt.Sprintf("by %s on %s", p.AuthorEmail, p.CreatedAt.Local().Format("Jan 2, 2006 15:04"))
	if mine {
		byline += " (yours)"
	}
	fmt.Fprintln(w, faint("%s", byline))
	if p.ImageURL != "" {
		fmt.Fprintln(w, faint("image: %s", p.ImageURL))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, p.Content)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "❤️ %d   💬 %d\n", p.Likes, p.CommentCount())
	for _, c := range p.Comments {
		fmt.Fprintf(w, "  %s %s\n", color.CyanString(c.User+":"), c.Text)
		fmt.Fprintln(w, "  "+faint("%s", c.CreatedAt))
	}
}

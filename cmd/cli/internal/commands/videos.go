package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/musickatta/katta-admin/internal/models"
	"github.com/musickatta/katta-admin/internal/player"
	"github.com/musickatta/katta-admin/internal/session"
)

type VideosCmd struct {
	List   VideosListCmd   `cmd:"" help:"List the videos of a course"`
	Upload VideosUploadCmd `cmd:"" help:"Upload a video to a course"`
	Delete VideosDeleteCmd `cmd:"" help:"Delete a video"`
}

type VideosListCmd struct {
	CourseID string `arg:"" help:"course id"`
}

func (l *VideosListCmd) Run(ctx context.Context, globals *Globals) error {
	_, c, err := globals.authorize(ctx, session.RequireLogin)
	if err != nil {
		return err
	}

	course, err := c.CourseWithVideos(ctx, l.CourseID)
	if err != nil {
		return userError(err)
	}

	globals.printf("%s (%d videos)\n", course.CourseName, len(course.Videos))
	if len(course.Videos) == 0 {
		globals.printf("No videos uploaded yet.\n")
		return nil
	}

	tw := globals.table()
	fmt.Fprintln(tw, "#\tID\tTITLE\tPOSTED\tURL")
	for i, v := range course.Videos {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i+1, v.VideoID, v.Title, orDash(v.PostDate), v.VideoURL)
	}
	return tw.Flush()
}

type VideosUploadCmd struct {
	CourseID    string `arg:"" help:"course id"`
	File        string `arg:"" help:"video file" type:"existingfile"`
	Title       string `help:"video title" required:""`
	Description string `help:"video description"`
}

func (u *VideosUploadCmd) Run(ctx context.Context, globals *Globals) error {
	_, c, err := globals.authorize(ctx, session.RequireAdmin)
	if err != nil {
		return err
	}

	file, err := os.Open(u.File)
	if err != nil {
		return fmt.Errorf("failed to open video: %w", err)
	}
	defer file.Close()

	in := &models.VideoInput{
		Title:       u.Title,
		Description: u.Description,
		File:        &models.Attachment{Filename: filepath.Base(u.File), Body: file},
	}
	if err := c.UploadVideo(ctx, u.CourseID, in); err != nil {
		return userError(err)
	}
	globals.printf("Video uploaded successfully.\n")
	return nil
}

type VideosDeleteCmd struct {
	VideoID string `arg:"" help:"video id"`
}

func (d *VideosDeleteCmd) Run(ctx context.Context, globals *Globals) error {
	_, c, err := globals.authorize(ctx, session.RequireAdmin)
	if err != nil {
		return err
	}

	if err := c.DeleteVideo(ctx, d.VideoID); err != nil {
		return userError(err)
	}
	globals.printf("Video deleted successfully.\n")
	return nil
}

// PlaylistCmd shows the play order of a course and what plays after a given video ends.
type PlaylistCmd struct {
	CourseID string `arg:"" help:"course id"`
	After    string `help:"show what plays after this video ends"`
}

func (p *PlaylistCmd) Run(ctx context.Context, globals *Globals) error {
	_, c, err := globals.authorize(ctx, session.RequireLogin)
	if err != nil {
		return err
	}

	course, err := c.CourseWithVideos(ctx, p.CourseID)
	if err != nil {
		return userError(err)
	}

	pl := player.New(course.Videos)
	if pl.Len() == 0 {
		globals.printf("%s has no videos yet.\n", course.CourseName)
		return nil
	}

	if p.After != "" {
		if err := pl.SelectID(p.After); err != nil {
			return fmt.Errorf("video %s is not part of %s", p.After, course.CourseName)
		}
		if err := pl.Play(); err != nil {
			return err
		}
		if err := pl.End(); err != nil {
			return err
		}
		if pl.State() == player.Ended {
			globals.printf("%s is the last video of %s.\n", p.After, course.CourseName)
			return nil
		}
	} else if err := pl.Select(0); err != nil {
		return err
	}

	tw := globals.table()
	fmt.Fprintln(tw, " \t#\tID\tTITLE")
	for i, v := range pl.Playlist() {
		marker := " "
		if i == pl.Index() {
			marker = ">"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", marker, i+1, v.VideoID, v.Title)
	}
	return tw.Flush()
}

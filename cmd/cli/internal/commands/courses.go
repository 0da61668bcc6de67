package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/musickatta/katta-admin/internal/client"
	"github.com/musickatta/katta-admin/internal/models"
	"github.com/musickatta/katta-admin/internal/request"
	"github.com/musickatta/katta-admin/internal/session"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type CoursesCmd struct {
	List   CoursesListCmd   `cmd:"" help:"List courses"`
	Get    CoursesGetCmd    `cmd:"" help:"Show a course"`
	Create CoursesCreateCmd `cmd:"" help:"Create a course"`
	Update CoursesUpdateCmd `cmd:"" help:"Update a course"`
}

type CoursesListCmd struct {
	Watch    bool          `help:"Refresh the list until interrupted" default:"false"`
	Interval time.Duration `help:"refresh interval for --watch" default:"5s"`
}

// Validate rejects a refresh interval the ticker cannot use.
func (l *CoursesListCmd) Validate() error {
	if l.Watch && l.Interval <= 0 {
		return fmt.Errorf("--interval must be positive, got %s", l.Interval)
	}
	return nil
}

func (l *CoursesListCmd) Run(ctx context.Context, globals *Globals) error {
	if err := l.Validate(); err != nil {
		return err
	}

	_, c, err := globals.authorize(ctx, session.RequireLogin)
	if err != nil {
		return err
	}

	if l.Watch {
		return l.watchCourses(ctx, globals, c)
	}

	courses, err := c.ListCourses(ctx)
	if err != nil {
		return userError(err)
	}
	return printCourses(globals, courses)
}

// watchCourses refetches on every tick. A tick that arrives while the previous fetch
// is still loading is skipped, so at most one fetch is in flight.
func (l *CoursesListCmd) watchCourses(ctx context.Context, globals *Globals, c *client.Client) error {
	globals.printf("Watching courses (press Ctrl+C to stop)...\n\n")

	tracker := request.NewTracker[[]models.Course]("courses")
	updates := make(chan request.Snapshot[[]models.Course], 1)

	fetch := func() {
		if tracker.Snapshot().Loading() {
			log.Ctx(ctx).Debug().Msg("previous refresh still loading, skipping tick")
			return
		}
		ticket := tracker.Begin()
		go func() {
			courses, err := c.ListCourses(ctx)
			if !tracker.Resolve(ctx, ticket, courses, err) {
				return
			}
			select {
			case updates <- tracker.Snapshot():
			case <-ctx.Done():
			}
		}()
	}

	ticker := time.NewTicker(l.Interval)
	defer ticker.Stop()

	fetch()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			fetch()
		case snap := <-updates:
			if snap.Err != nil {
				globals.printf("Error updating course list: %s\n", client.ErrorBanner(snap.Err).Text)
				continue
			}
			globals.printf("\033[2J\033[HCourses (updated at %s)\n\n", time.Now().Format("15:04:05"))
			if err := printCourses(globals, snap.Value); err != nil {
				return err
			}
		}
	}
}

func printCourses(globals *Globals, courses []models.Course) error {
	if len(courses) == 0 {
		globals.printf("No courses found.\n")
		return nil
	}

	tw := globals.table()
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tDISCOUNT\tSTATUS\tCREATED")
	for _, course := range courses {
		discount := "-"
		if d := course.Discount(); d > 0 {
			discount = fmt.Sprintf("%d%%", d)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			course.CourseID, course.CourseName, course.Price, discount, orDash(course.Status), orDash(course.CreatedAt()))
	}
	return tw.Flush()
}

type CoursesGetCmd struct {
	CourseID string `arg:"" help:"course id"`
}

func (g *CoursesGetCmd) Run(ctx context.Context, globals *Globals) error {
	_, c, err := globals.authorize(ctx, session.RequireLogin)
	if err != nil {
		return err
	}

	course, err := c.GetCourse(ctx, g.CourseID)
	if err != nil {
		return userError(err)
	}
	return printCourse(globals, course)
}

func printCourse(globals *Globals, course *models.Course) error {
	tw := globals.table()
	fmt.Fprintf(tw, "ID:\t%s\n", course.CourseID)
	fmt.Fprintf(tw, "Name:\t%s\n", course.CourseName)
	fmt.Fprintf(tw, "Details:\t%s\n", course.Details)
	fmt.Fprintf(tw, "Price:\t%s\n", course.Price)
	fmt.Fprintf(tw, "Original price:\t%s\n", orDash(string(course.OriginalPrice)))
	fmt.Fprintf(tw, "Discount:\t%d%%\n", course.Discount())
	fmt.Fprintf(tw, "Status:\t%s\n", orDash(course.Status))
	fmt.Fprintf(tw, "Duration:\t%s\n", orDash(course.CourseDuration))
	fmt.Fprintf(tw, "Keywords:\t%s\n", orDash(strings.Join(course.Keywords, ", ")))
	fmt.Fprintf(tw, "Created:\t%s\n", orDash(course.CreatedAt()))
	return tw.Flush()
}

// CourseFields are the course form fields shared by create and update. Values given as
// flags override the ones read from --file.
type CourseFields struct {
	File           string   `help:"YAML file with the course fields" type:"existingfile" short:"f"`
	Name           string   `help:"course name"`
	Details        string   `help:"course details"`
	Price          string   `help:"price"`
	OriginalPrice  string   `help:"original price, used for the discount"`
	Status         string   `help:"course status (active, inactive)"`
	CourseDuration string   `help:"course duration, e.g. \"3 months\""`
	Keywords       []string `help:"comma separated keywords"`
	Image          string   `help:"image file to upload with the course" type:"existingfile"`
}

// input builds the course input. The returned cleanup closes the image file.
func (f *CourseFields) input() (*models.CourseInput, func(), error) {
	cleanup := func() {}
	in := &models.CourseInput{}

	if f.File != "" {
		data, err := os.ReadFile(f.File)
		if err != nil {
			return nil, cleanup, fmt.Errorf("failed to read course file: %w", err)
		}
		if err := yaml.Unmarshal(data, in); err != nil {
			return nil, cleanup, fmt.Errorf("failed to parse course file %s: %w", f.File, err)
		}
	}

	override(&in.CourseName, f.Name)
	override(&in.Details, f.Details)
	override(&in.Price, f.Price)
	override(&in.OriginalPrice, f.OriginalPrice)
	override(&in.Status, f.Status)
	override(&in.CourseDuration, f.CourseDuration)
	if len(f.Keywords) > 0 {
		in.Keywords = f.Keywords
	}

	if f.Image != "" {
		file, err := os.Open(f.Image)
		if err != nil {
			return nil, cleanup, fmt.Errorf("failed to open image: %w", err)
		}
		cleanup = func() { file.Close() }
		in.Image = &models.Attachment{Filename: filepath.Base(f.Image), Body: file}
	}
	return in, cleanup, nil
}

func override(dst *string, flag string) {
	if flag != "" {
		*dst = flag
	}
}

type CoursesCreateCmd struct {
	CourseFields `embed:""`
}

func (cr *CoursesCreateCmd) Run(ctx context.Context, globals *Globals) error {
	_, c, err := globals.authorize(ctx, session.RequireAdmin)
	if err != nil {
		return err
	}

	in, cleanup, err := cr.input()
	defer cleanup()
	if err != nil {
		return err
	}

	course, err := c.CreateCourse(ctx, in)
	if err != nil {
		return userError(err)
	}
	globals.printf("Course created successfully with ID: %s\n", course.CourseID)
	return nil
}

type CoursesUpdateCmd struct {
	CourseID     string `arg:"" help:"course id"`
	CourseFields `embed:""`
}

func (u *CoursesUpdateCmd) Run(ctx context.Context, globals *Globals) error {
	_, c, err := globals.authorize(ctx, session.RequireAdmin)
	if err != nil {
		return err
	}

	// Unset fields keep their current values.
	current, err := c.GetCourse(ctx, u.CourseID)
	if err != nil {
		return userError(err)
	}

	in, cleanup, err := u.input()
	defer cleanup()
	if err != nil {
		return err
	}
	merged := models.InputFromCourse(*current)
	merge(&merged, in)

	if _, err := c.UpdateCourse(ctx, u.CourseID, &merged); err != nil {
		return userError(err)
	}
	globals.printf("Course updated successfully.\n")
	return nil
}

func merge(dst, src *models.CourseInput) {
	override(&dst.CourseName, src.CourseName)
	override(&dst.Details, src.Details)
	override(&dst.Price, src.Price)
	override(&dst.OriginalPrice, src.OriginalPrice)
	override(&dst.Status, src.Status)
	override(&dst.CourseDuration, src.CourseDuration)
	if len(src.Keywords) > 0 {
		dst.Keywords = src.Keywords
	}
	dst.Image = src.Image
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

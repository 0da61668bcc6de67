package website

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/musickatta/katta-admin/internal/client"
	"github.com/musickatta/katta-admin/internal/models"
	"github.com/musickatta/katta-admin/internal/player"
	"github.com/rs/zerolog/log"
)

// PlaylistEntry is one row of the playlist.
type PlaylistEntry struct {
	models.Video
	Number int
	Active bool
	URL    string
}

// PlayerView is the player state rendered into the page.
type PlayerView struct {
	State    string
	Current  *models.Video
	Playlist []PlaylistEntry
	HasNext  bool
	Finished bool
	Volume   float64
	// EndedURL is loaded by the page script when the current video ends.
	EndedURL string
}

// CourseDetailsPage is the data of the course details template.
type CourseDetailsPage struct {
	Layout
	Banner *client.Banner
	Course *models.CourseWithVideos
	Player PlayerView
}

// CourseDetailsHandler shows a course with its playlist. The video query parameter
// selects an entry and ended reports the end of an entry, advancing to the next one.
func (h *Handlers) CourseDetailsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	courseID := r.PathValue("courseId")

	data := CourseDetailsPage{Layout: layoutFor(ctx)}

	course, err := h.backend(ctx).CourseWithVideos(ctx, courseID)
	if err != nil {
		data.Banner = client.ErrorBanner(err)
		h.page(w, r, http.StatusOK, "course-details", "Course Details", PlayerEntryPoint, data)
		return
	}
	data.Course = course

	p, err := playerFromQuery(course.Videos, r.URL.Query())
	if err != nil {
		log.Ctx(ctx).Debug().Err(err).Str("course_id", courseID).Msg("Ignoring player query")
		data.Banner = &client.Banner{Kind: client.BannerError, Text: "That video is not part of this course."}
	}
	data.Player = playerView(p, r.URL.Path)

	h.page(w, r, http.StatusOK, "course-details", "Course Details", PlayerEntryPoint, data)
}

// playerFromQuery replays the page's query onto a fresh player. An unknown video
// falls back to the first entry and is reported as an error.
func playerFromQuery(videos []models.Video, q url.Values) (*player.Player, error) {
	p := player.New(videos)

	var err error
	switch {
	case q.Get("ended") != "":
		if err = p.SelectID(q.Get("ended")); err == nil {
			if err = p.Play(); err == nil {
				err = p.End()
			}
		}
	case q.Get("video") != "":
		err = p.SelectID(q.Get("video"))
	}

	if p.State() == player.Unloaded && p.Len() > 0 {
		if selErr := p.Select(0); selErr != nil {
			err = errors.Join(err, selErr)
		}
	}
	return p, err
}

func playerView(p *player.Player, path string) PlayerView {
	view := PlayerView{
		State:    p.State().String(),
		HasNext:  p.HasNext(),
		Finished: p.State() == player.Ended,
		Volume:   p.Volume(),
	}

	if v, ok := p.Current(); ok {
		view.Current = &v
		view.EndedURL = path + "?" + url.Values{"ended": {string(v.VideoID)}}.Encode()
	}

	for i, v := range p.Playlist() {
		view.Playlist = append(view.Playlist, PlaylistEntry{
			Video:  v,
			Number: i + 1,
			Active: i == p.Index(),
			URL:    path + "?" + url.Values{"video": {string(v.VideoID)}}.Encode(),
		})
	}
	return view
}

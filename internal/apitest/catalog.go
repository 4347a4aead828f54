// ABOUTME: Exercise catalog and workout history handlers of the fake API
// ABOUTME: Serves a fixed seed catalog and a per-user history grouped by day

package apitest

import (
	"encoding/json"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type exercise struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Series      int    `json:"series"`
	Repetitions int    `json:"repetitions"`
	Group       string `json:"group"`
	Demo        string `json:"demo"`
	Thumb       string `json:"thumb"`
}

// Exercises is the seeded catalog
var Exercises = []exercise{
	{ID: "1", Name: "Front pulldown", Series: 3, Repetitions: 12, Group: "back", Demo: "front_pulldown.gif", Thumb: "front_pulldown.png"},
	{ID: "2", Name: "Bent-over row", Series: 3, Repetitions: 12, Group: "back", Demo: "bent_over_row.gif", Thumb: "bent_over_row.png"},
	{ID: "3", Name: "Barbell curl", Series: 3, Repetitions: 12, Group: "biceps", Demo: "barbell_curl.gif", Thumb: "barbell_curl.png"},
	{ID: "4", Name: "Hammer curl", Series: 3, Repetitions: 10, Group: "biceps", Demo: "hammer_curl.gif", Thumb: "hammer_curl.png"},
	{ID: "5", Name: "Squat", Series: 4, Repetitions: 10, Group: "legs", Demo: "squat.gif", Thumb: "squat.png"},
	{ID: "6", Name: "Shoulder press", Series: 3, Repetitions: 10, Group: "shoulders", Demo: "shoulder_press.gif", Thumb: "shoulder_press.png"},
}

type historyEntry struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Group     string `json:"group"`
	Hour      string `json:"hour"`
	CreatedAt string `json:"created_at"`
}

type historyDay struct {
	Title string         `json:"title"`
	Data  []historyEntry `json:"data"`
}

func findExercise(id string) (exercise, bool) {
	i := slices.IndexFunc(Exercises, func(e exercise) bool { return e.ID == id })
	if i < 0 {
		return exercise{}, false
	}
	return Exercises[i], true
}

func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	var groups []string
	for _, e := range Exercises {
		if !slices.Contains(groups, e.Group) {
			groups = append(groups, e.Group)
		}
	}
	slices.Sort(groups)
	writeJSON(w, http.StatusOK, groups)
}

func (s *Server) handleExercisesByGroup(w http.ResponseWriter, r *http.Request) {
	group := chi.URLParam(r, "group")
	exercises := []exercise{}
	for _, e := range Exercises {
		if e.Group == group {
			exercises = append(exercises, e)
		}
	}
	writeJSON(w, http.StatusOK, exercises)
}

func (s *Server) handleExercise(w http.ResponseWriter, r *http.Request) {
	e, ok := findExercise(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, "Exercise not found.", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	records := slices.Clone(s.history[userFromContext(r.Context())])
	s.mu.Unlock()

	slices.SortStableFunc(records, func(a, b historyRecord) int { return b.At.Compare(a.At) })

	days := []historyDay{}
	for _, rec := range records {
		e, _ := findExercise(rec.ExerciseID)
		title := rec.At.Format("02.01.2006")
		if len(days) == 0 || days[len(days)-1].Title != title {
			days = append(days, historyDay{Title: title})
		}
		last := &days[len(days)-1]
		last.Data = append(last.Data, historyEntry{
			ID:        rec.ID,
			Name:      e.Name,
			Group:     e.Group,
			Hour:      rec.At.Format("15:04"),
			CreatedAt: rec.At.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, days)
}

func (s *Server) handleRegisterHistory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ExerciseID string `json:"exercise_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if _, ok := findExercise(req.ExerciseID); !ok {
		writeError(w, "Exercise not found.", http.StatusNotFound)
		return
	}

	userID := userFromContext(r.Context())
	s.mu.Lock()
	s.history[userID] = append(s.history[userID], historyRecord{
		ID:         uuid.NewString(),
		ExerciseID: req.ExerciseID,
		At:         time.Now(),
	})
	s.mu.Unlock()

	w.WriteHeader(http.StatusCreated)
}

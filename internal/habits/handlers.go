package habits

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jimdaga/habit-tracker/internal/apierr"
	"github.com/jimdaga/habit-tracker/internal/auth"
	"github.com/jimdaga/habit-tracker/internal/models"
)

type MomentResponse struct {
	Title *string          `json:"title"`
	Time  models.TimeOfDay `json:"time"`
}

type HabitResponse struct {
	ID           uint           `json:"id"`
	Moment       MomentResponse `json:"moment"`
	Action       string         `json:"action"`
	Place        *string        `json:"place"`
	Periodicity  int            `json:"periodicity"`
	Duration     int            `json:"duration"`
	IsPleasant   bool           `json:"is_pleasant"`
	RelatedHabit *uint          `json:"related_habit"`
	Award        *string        `json:"award"`
	IsPublic     bool           `json:"is_public"`
	Owner        uint           `json:"owner"`
}

// PageResponse is a page of habits with links to its neighbours.
type PageResponse struct {
	Count    int64           `json:"count"`
	Next     *string         `json:"next"`
	Previous *string         `json:"previous"`
	Results  []HabitResponse `json:"results"`
}

func NewHabitResponse(h *models.Habit) HabitResponse {
	return HabitResponse{
		ID:           h.ID,
		Moment:       MomentResponse{Title: h.Moment.Title, Time: h.Moment.Time},
		Action:       h.Action,
		Place:        h.Place,
		Periodicity:  h.Periodicity,
		Duration:     h.Duration,
		IsPleasant:   h.IsPleasant,
		RelatedHabit: h.RelatedHabitID,
		Award:        h.Award,
		IsPublic:     h.IsPublic,
		Owner:        h.OwnerID,
	}
}

// HandleCreate creates a habit owned by the authenticated user.
func HandleCreate(svc *Service, payloads *PayloadDecoder) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := auth.CurrentUser(c)
		in, ok := decodeBody(c, payloads)
		if !ok {
			return
		}

		habit, err := svc.Create(c.Request.Context(), user, in)
		if err != nil {
			apierr.Respond(c, err)
			return
		}

		slog.Info("Habit created",
			"habit_id", habit.ID,
			"user_id", user.ID,
			"pleasant", habit.IsPleasant,
		)
		c.JSON(http.StatusCreated, NewHabitResponse(habit))
	}
}

// HandleList lists habits within scope.
func HandleList(svc *Service, scope Scope) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := auth.CurrentUser(c)
		q, err := ParseListQuery(c.Request.URL.Query(), scope)
		if err != nil {
			apierr.Respond(c, err)
			return
		}

		var habits []models.Habit
		var count int64
		if scope == ScopePublic {
			habits, count, err = svc.ListPublic(c.Request.Context(), q)
		} else {
			habits, count, err = svc.ListMine(c.Request.Context(), user.ID, q)
		}
		if err != nil {
			apierr.Respond(c, err)
			return
		}

		page := PageResponse{Count: count, Results: make([]HabitResponse, 0, len(habits))}
		page.Next, page.Previous = q.PageLinks(c.Request.URL, count)
		for i := range habits {
			page.Results = append(page.Results, NewHabitResponse(&habits[i]))
		}
		c.JSON(http.StatusOK, page)
	}
}

// HandleGet returns one habit visible to the authenticated user.
func HandleGet(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := habitID(c)
		if !ok {
			return
		}

		habit, err := svc.Get(c.Request.Context(), auth.CurrentUser(c).ID, id)
		if err != nil {
			apierr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, NewHabitResponse(habit))
	}
}

// HandleUpdate serves PUT and PATCH; PATCH is a partial update.
func HandleUpdate(svc *Service, payloads *PayloadDecoder) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := habitID(c)
		if !ok {
			return
		}
		in, ok := decodeBody(c, payloads)
		if !ok {
			return
		}

		partial := c.Request.Method == http.MethodPatch
		habit, err := svc.Update(c.Request.Context(), auth.CurrentUser(c), id, in, partial)
		if err != nil {
			apierr.Respond(c, err)
			return
		}
		c.JSON(http.StatusOK, NewHabitResponse(habit))
	}
}

// HandleDelete deletes a habit owned by the authenticated user.
func HandleDelete(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := habitID(c)
		if !ok {
			return
		}

		user := auth.CurrentUser(c)
		if err := svc.Delete(c.Request.Context(), user.ID, id); err != nil {
			apierr.Respond(c, err)
			return
		}

		slog.Info("Habit deleted", "habit_id", id, "user_id", user.ID)
		c.Status(http.StatusNoContent)
	}
}

func decodeBody(c *gin.Context, payloads *PayloadDecoder) (HabitInput, bool) {
	body, err := c.GetRawData()
	if err != nil {
		apierr.Respond(c, apierr.BadRequest("invalid_body", err))
		return HabitInput{}, false
	}
	in, err := payloads.Decode(body)
	if err != nil {
		apierr.Respond(c, err)
		return HabitInput{}, false
	}
	return in, true
}

func habitID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		apierr.Respond(c, apierr.NotFound(errors.New("habit not found")))
		return 0, false
	}
	return uint(id), true
}

package handler

import (
    "errors"
    "log/slog"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/parkall/internal/model"
)

// requestTimeout bounds every store call made by a handler.
const requestTimeout = 5 * time.Second

// ----- DTOs -----
// Field names follow the frontend contract.

type publisherJSON struct {
    ID     string `json:"id"`
    Nombre string `json:"nombre"`
    Email  string `json:"email"`
}

type spotJSON struct {
    ID           string         `json:"id"`
    Descripcion  string         `json:"descripcion"`
    Ubicacion    string         `json:"ubicacion"`
    Precio       float64        `json:"precio"`
    PublicadorID string         `json:"publicadorId"`
    Publicador   *publisherJSON `json:"publicador,omitempty"`
    Disponible   bool           `json:"disponible"`
    ReservadoPor *string        `json:"reservadoPor"`
    Imagen       *string        `json:"imagen"`
    CreatedAt    time.Time      `json:"createdAt"`
    UpdatedAt    time.Time      `json:"updatedAt"`
}

type userJSON struct {
    ID        string    `json:"id"`
    Nombre    string    `json:"nombre"`
    Email     string    `json:"email"`
    CreatedAt time.Time `json:"createdAt"`
}

type reservationJSON struct {
    ID        string    `json:"id"`
    UserID    string    `json:"userId"`
    SpotID    string    `json:"parkingId"`
    CreatedAt time.Time `json:"createdAt"`
}

func toSpotJSON(s *model.ParkingSpot, publisher *model.User) spotJSON {
    out := spotJSON{
        ID:           s.ID,
        Descripcion:  s.Description,
        Ubicacion:    s.Location,
        Precio:       s.Price,
        PublicadorID: s.PublisherID,
        Disponible:   s.Available,
        ReservadoPor: s.ReservedBy,
        Imagen:       s.Image,
        CreatedAt:    s.CreatedAt,
        UpdatedAt:    s.UpdatedAt,
    }
    if publisher != nil {
        out.Publicador = &publisherJSON{ID: publisher.ID, Nombre: publisher.Name, Email: publisher.Email}
    }
    return out
}

func toSpotList(views []model.SpotView) []spotJSON {
    out := make([]spotJSON, 0, len(views))
    for i := range views {
        out = append(out, toSpotJSON(&views[i].ParkingSpot, views[i].Publisher))
    }
    return out
}

func toUserJSON(u *model.User) userJSON {
    return userJSON{ID: u.ID, Nombre: u.Name, Email: u.Email, CreatedAt: u.CreatedAt}
}

// statusOf maps an error kind to its HTTP status.  Conflicts are reported
// as 400 to match the frontend contract.
func statusOf(k model.Kind) int {
    switch k {
    case model.KindNotFound:
        return http.StatusNotFound
    case model.KindConflict, model.KindInvalidInput:
        return http.StatusBadRequest
    case model.KindForbidden:
        return http.StatusForbidden
    case model.KindUnauthorized:
        return http.StatusUnauthorized
    default:
        return http.StatusInternalServerError
    }
}

// errorWriter renders service errors as {"message", "error"}.  The
// diagnostic "error" field is only filled for internal failures and only
// when ShowDetail is set.
type errorWriter struct {
    ShowDetail bool
    Logger     *slog.Logger
}

func (w errorWriter) logger() *slog.Logger {
    if w.Logger != nil {
        return w.Logger
    }
    return slog.Default()
}

func (w errorWriter) write(c echo.Context, op string, err error) error {
    kind := model.KindOf(err)
    status := statusOf(kind)

    msg := "internal server error"
    var appErr *model.AppError
    if errors.As(err, &appErr) && kind != model.KindInternal {
        msg = appErr.Message
    }

    logger := w.logger()
    level := slog.LevelWarn
    if status >= 500 {
        level = slog.LevelError
    }
    logger.Log(c.Request().Context(), level, "request failed",
        "op", op, "kind", kind.String(), "status", status, "error", err)

    body := echo.Map{"message": msg}
    if w.ShowDetail && kind == model.KindInternal {
        body["error"] = err.Error()
    }
    return c.JSON(status, body)
}

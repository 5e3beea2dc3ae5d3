package handler

import (
    "context"
    "errors"
    "log/slog"
    "mime/multipart"
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/parkall/internal/middleware"
    "github.com/iliyamo/parkall/internal/model"
    "github.com/iliyamo/parkall/internal/parking"
    "github.com/iliyamo/parkall/internal/storage"
)

// ParkingService is implemented by *parking.Service.
type ParkingService interface {
    Publish(ctx context.Context, in parking.PublishInput) (*model.ParkingSpot, error)
    Get(ctx context.Context, spotID string) (*model.ParkingSpot, error)
    List(ctx context.Context) ([]model.SpotView, error)
    Reserve(ctx context.Context, spotID, userID string) (*model.ParkingSpot, error)
    CancelReservation(ctx context.Context, spotID, userID string) (*model.ParkingSpot, error)
    Edit(ctx context.Context, spotID string, patch model.SpotPatch, image *string) (*model.ParkingSpot, error)
    Delete(ctx context.Context, spotID string) error
    ListReservedBy(ctx context.Context, userID string) ([]model.SpotView, error)
    ListPublishedBy(ctx context.Context, userID string) ([]model.SpotView, error)
    History(ctx context.Context, spotID string) ([]model.Reservation, error)
}

// ParkingHandler serves /api/parking.
type ParkingHandler struct {
    Svc            ParkingService
    Images         storage.ImageStore // nil disables uploads
    MaxUploadBytes int64
    errs           errorWriter
}

func NewParkingHandler(svc ParkingService, images storage.ImageStore, maxUpload int64, logger *slog.Logger, showErrorDetail bool) *ParkingHandler {
    return &ParkingHandler{
        Svc:            svc,
        Images:         images,
        MaxUploadBytes: maxUpload,
        errs:           errorWriter{ShowDetail: showErrorDetail, Logger: logger},
    }
}

type actorReq struct {
    UserID string `json:"userId"`
}

// Create publishes a spot from a multipart form.  The image, if any, is
// stored first and released again when publishing fails.
func (h *ParkingHandler) Create(c echo.Context) error {
    publisher, err := actor(c, c.FormValue("publicadorId"))
    if err != nil {
        return h.errs.write(c, "publish", err)
    }
    raw := strings.TrimSpace(c.FormValue("precio"))
    if raw == "" {
        return h.errs.write(c, "publish", model.InvalidInput("descripcion, ubicacion, precio and publicadorId are required"))
    }
    price, err := parsePrice(raw)
    if err != nil {
        return h.errs.write(c, "publish", err)
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    image, err := h.saveImage(ctx, c)
    if err != nil {
        return h.errs.write(c, "publish", err)
    }

    spot, err := h.Svc.Publish(ctx, parking.PublishInput{
        PublisherID: publisher,
        Description: c.FormValue("descripcion"),
        Location:    c.FormValue("ubicacion"),
        Price:       price,
        Image:       image,
    })
    if err != nil {
        h.discardImage(ctx, image)
        return h.errs.write(c, "publish", err)
    }
    return c.JSON(http.StatusCreated, echo.Map{
        "message": "parking spot published",
        "parking": toSpotJSON(spot, nil),
    })
}

// List returns every spot with its publisher summary.
func (h *ParkingHandler) List(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    views, err := h.Svc.List(ctx)
    if err != nil {
        return h.errs.write(c, "list", err)
    }
    return c.JSON(http.StatusOK, echo.Map{"parkings": toSpotList(views)})
}

func (h *ParkingHandler) Reserve(c echo.Context) error {
    var req actorReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
    }
    user, err := actor(c, req.UserID)
    if err != nil {
        return h.errs.write(c, "reserve", err)
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    spot, err := h.Svc.Reserve(ctx, c.Param("spotId"), user)
    if err != nil {
        return h.errs.write(c, "reserve", err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "message": "parking spot reserved",
        "parking": toSpotJSON(spot, nil),
    })
}

func (h *ParkingHandler) CancelReservation(c echo.Context) error {
    var req actorReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid body"})
    }
    user, err := actor(c, req.UserID)
    if err != nil {
        return h.errs.write(c, "cancel reservation", err)
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    spot, err := h.Svc.CancelReservation(ctx, c.Param("spotId"), user)
    if err != nil {
        return h.errs.write(c, "cancel reservation", err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "message": "reservation cancelled",
        "parking": toSpotJSON(spot, nil),
    })
}

// Edit applies a multipart patch.  Empty fields are treated as absent.
func (h *ParkingHandler) Edit(c echo.Context) error {
    spotID := c.Param("spotId")

    var patch model.SpotPatch
    if v := c.FormValue("descripcion"); strings.TrimSpace(v) != "" {
        patch.Description = &v
    }
    if v := c.FormValue("ubicacion"); strings.TrimSpace(v) != "" {
        patch.Location = &v
    }
    if v := strings.TrimSpace(c.FormValue("precio")); v != "" {
        price, err := parsePrice(v)
        if err != nil {
            return h.errs.write(c, "edit", err)
        }
        patch.Price = &price
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    if err := h.requireOwner(ctx, c, spotID, "only the publisher can edit this parking spot"); err != nil {
        return h.errs.write(c, "edit", err)
    }

    image, err := h.saveImage(ctx, c)
    if err != nil {
        return h.errs.write(c, "edit", err)
    }
    spot, err := h.Svc.Edit(ctx, spotID, patch, image)
    if err != nil {
        h.discardImage(ctx, image)
        return h.errs.write(c, "edit", err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "message": "parking spot updated",
        "parking": toSpotJSON(spot, nil),
    })
}

func (h *ParkingHandler) Delete(c echo.Context) error {
    spotID := c.Param("spotId")

    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    if err := h.requireOwner(ctx, c, spotID, "only the publisher can delete this parking spot"); err != nil {
        return h.errs.write(c, "delete", err)
    }
    if err := h.Svc.Delete(ctx, spotID); err != nil {
        return h.errs.write(c, "delete", err)
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "parking spot deleted"})
}

// ListReservedBy answers 200 with an empty list when nothing is reserved.
func (h *ParkingHandler) ListReservedBy(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    views, err := h.Svc.ListReservedBy(ctx, c.Param("userId"))
    if err != nil {
        return h.errs.write(c, "list reserved", err)
    }
    return c.JSON(http.StatusOK, echo.Map{"parkings": toSpotList(views)})
}

// ListPublishedBy answers 404 when the user has published nothing.
func (h *ParkingHandler) ListPublishedBy(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    views, err := h.Svc.ListPublishedBy(ctx, c.Param("userId"))
    if err != nil {
        return h.errs.write(c, "list published", err)
    }
    return c.JSON(http.StatusOK, echo.Map{"parkings": toSpotList(views)})
}

func (h *ParkingHandler) History(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
    defer cancel()

    recs, err := h.Svc.History(ctx, c.Param("spotId"))
    if err != nil {
        return h.errs.write(c, "history", err)
    }
    out := make([]reservationJSON, 0, len(recs))
    for _, r := range recs {
        out = append(out, reservationJSON{ID: r.ID, UserID: r.UserID, SpotID: r.SpotID, CreatedAt: r.CreatedAt})
    }
    return c.JSON(http.StatusOK, echo.Map{"reservations": out})
}

// actor resolves the acting user from the bearer token and the id the
// client claims.  Without a token the claimed id is trusted.
func actor(c echo.Context, claimed string) (string, error) {
    claimed = strings.TrimSpace(claimed)
    token := middleware.CurrentUserID(c)
    switch {
    case token == "":
        return claimed, nil
    case claimed == "" || claimed == token:
        return token, nil
    default:
        return "", model.Forbidden("user id does not match the authenticated user")
    }
}

// requireOwner enforces that an authenticated caller publishes spotID.
func (h *ParkingHandler) requireOwner(ctx context.Context, c echo.Context, spotID, msg string) error {
    token := middleware.CurrentUserID(c)
    if token == "" {
        return nil
    }
    spot, err := h.Svc.Get(ctx, spotID)
    if err != nil {
        return err
    }
    if spot.PublisherID != token {
        return model.Forbidden(msg)
    }
    return nil
}

func parsePrice(raw string) (float64, error) {
    price, err := strconv.ParseFloat(raw, 64)
    if err != nil {
        return 0, model.InvalidInput("precio must be a number")
    }
    return price, nil
}

// saveImage stores the optional "imagen" file and returns its reference.
func (h *ParkingHandler) saveImage(ctx context.Context, c echo.Context) (*string, error) {
    fh, err := c.FormFile("imagen")
    if errors.Is(err, http.ErrMissingFile) {
        return nil, nil
    }
    if err != nil {
        return nil, model.InvalidInput("invalid multipart form")
    }
    if h.Images == nil {
        return nil, model.InvalidInput("image uploads are disabled")
    }
    if h.MaxUploadBytes > 0 && fh.Size > h.MaxUploadBytes {
        return nil, model.InvalidInput("image exceeds the upload size limit")
    }
    if !strings.HasPrefix(fh.Header.Get("Content-Type"), "image/") {
        return nil, model.InvalidInput("imagen must be an image")
    }
    ref, err := h.store(ctx, fh)
    if err != nil {
        return nil, model.Internal("store image", err)
    }
    return &ref, nil
}

func (h *ParkingHandler) store(ctx context.Context, fh *multipart.FileHeader) (string, error) {
    f, err := fh.Open()
    if err != nil {
        return "", err
    }
    defer f.Close()
    return h.Images.Save(ctx, fh.Filename, f)
}

func (h *ParkingHandler) discardImage(ctx context.Context, ref *string) {
    if ref == nil || h.Images == nil {
        return
    }
    if err := h.Images.Release(context.WithoutCancel(ctx), *ref); err != nil {
        h.errs.logger().Warn("discard upload failed", "ref", *ref, "error", err)
    }
}

package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"bookchain-backend/internal/domains/blob/model"
	"bookchain-backend/internal/domains/blob/service"
	catalogModel "bookchain-backend/internal/domains/catalog/model"
	catalogService "bookchain-backend/internal/domains/catalog/service"
	purchaseService "bookchain-backend/internal/domains/purchase/service"
	"bookchain-backend/internal/shared"
	"bookchain-backend/internal/shared/middleware"
	"bookchain-backend/internal/shared/response"
)

// maxUploadBytes caps a single blob upload (50 MB)
const maxUploadBytes = 50 << 20

type BlobHandler struct {
	blobService     service.BlobService
	catalogService  catalogService.CatalogService
	purchaseService purchaseService.PurchaseService
}

func NewBlobHandler(
	blobService service.BlobService,
	catalogSvc catalogService.CatalogService,
	purchaseSvc purchaseService.PurchaseService,
) *BlobHandler {
	return &BlobHandler{
		blobService:     blobService,
		catalogService:  catalogSvc,
		purchaseService: purchaseSvc,
	}
}

// Upload stores a content blob and returns its hash. Listings reference
// blobs by the returned hash.
// POST /api/v1/blobs
func (h *BlobHandler) Upload(c *gin.Context) {
	kind := c.PostForm("kind")

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}
	if fileHeader.Size > maxUploadBytes {
		response.BadRequest(c, "file too large")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.InternalServerError(c, "failed to read upload")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		response.InternalServerError(c, "failed to read upload")
		return
	}
	if int64(len(data)) > maxUploadBytes {
		response.BadRequest(c, "file too large")
		return
	}

	mediaType := fileHeader.Header.Get("Content-Type")

	hash, err := h.blobService.Put(c.Request.Context(), data, kind, fileHeader.Filename, mediaType)
	if err != nil {
		if errors.Is(err, model.ErrInvalidKind) {
			response.BadRequest(c, "kind must be primary or cover")
			return
		}
		response.InternalServerError(c, "failed to store blob")
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"content_hash": hash})
}

// DownloadContent serves a book's primary content. Only verified buyers,
// the listing's owner, and admins get it.
// GET /api/v1/books/:book_id/content
func (h *BlobHandler) DownloadContent(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	book, done := h.resolveBook(c)
	if done {
		return
	}

	allowed, err := h.mayDownload(c, principal, book)
	if err != nil {
		response.InternalServerError(c, "failed to check purchase")
		return
	}
	if !allowed {
		response.Forbidden(c, "verified purchase required")
		return
	}

	h.serveBlob(c, book.PDFHash)
}

// DownloadCover serves a book's cover image, no purchase needed
// GET /api/v1/books/:book_id/cover
func (h *BlobHandler) DownloadCover(c *gin.Context) {
	book, done := h.resolveBook(c)
	if done {
		return
	}

	if book.CoverHash == "" {
		response.NotFound(c, "book has no cover")
		return
	}

	h.serveBlob(c, book.CoverHash)
}

// EvictionCandidates ranks the coldest unreferenced blobs for operators
// GET /api/v1/admin/blobs/eviction-candidates
func (h *BlobHandler) EvictionCandidates(c *gin.Context) {
	n := 20
	if v, err := strconv.Atoi(c.Query("n")); err == nil && v > 0 {
		n = v
	}

	candidates, err := h.blobService.EvictionCandidates(c.Request.Context(), n)
	if err != nil {
		response.InternalServerError(c, "failed to rank eviction candidates")
		return
	}

	response.Success(c, http.StatusOK, candidates)
}

func (h *BlobHandler) resolveBook(c *gin.Context) (*catalogModel.Book, bool) {
	bookID, err := uuid.Parse(c.Param("book_id"))
	if err != nil {
		response.BadRequest(c, "invalid book id")
		return nil, true
	}

	book, err := h.catalogService.GetBook(c.Request.Context(), bookID)
	if err != nil {
		if errors.Is(err, catalogModel.ErrBookNotFound) {
			response.NotFound(c, "book not found")
			return nil, true
		}
		response.InternalServerError(c, "failed to load book")
		return nil, true
	}

	return book, false
}

func (h *BlobHandler) mayDownload(c *gin.Context, principal shared.Principal, book *catalogModel.Book) (bool, error) {
	if principal.Role == shared.RoleAdmin {
		return true, nil
	}
	if book.AuthorID != nil && *book.AuthorID == principal.UserID {
		return true, nil
	}
	if book.SellerID != nil && *book.SellerID == principal.UserID {
		return true, nil
	}
	return h.purchaseService.HasVerifiedPurchase(c.Request.Context(), principal.UserID, book.ID)
}

func (h *BlobHandler) serveBlob(c *gin.Context, hash string) {
	data, meta, err := h.blobService.Get(c.Request.Context(), hash)
	if err != nil {
		if errors.Is(err, model.ErrBlobNotFound) {
			response.NotFound(c, "content not found")
			return
		}
		response.InternalServerError(c, "failed to load content")
		return
	}

	mediaType := meta.MediaType
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}

	c.Data(http.StatusOK, mediaType, data)
}

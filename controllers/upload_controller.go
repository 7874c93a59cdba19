package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/spiritfit/storage"
	"github.com/cppla/spiritfit/utils"
)

// UploadController accepts avatar and post images.
type UploadController struct {
	uploader *storage.Uploader
}

func NewUploadController(uploader *storage.Uploader) *UploadController {
	return &UploadController{uploader: uploader}
}

// Upload stores a multipart "file" in the bucket named by ?bucket= (post-images by default).
func (u *UploadController) Upload(ctx *gin.Context) {
	userID, ok := requireUser(ctx, codeUpload)
	if !ok {
		return
	}

	// Accept common field name 'file' or fallback to 'f'
	file, header, err := ctx.Request.FormFile("file")
	if err != nil {
		file, header, err = ctx.Request.FormFile("f")
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40000+codeUpload, "no file uploaded")
			return
		}
	}
	defer file.Close()

	if header.Size > storage.MaxUploadSize {
		utils.Error(ctx, http.StatusBadRequest, 40001+codeUpload, "file size exceeds 10MB")
		return
	}

	bucket := ctx.DefaultQuery("bucket", storage.BucketPostImages)
	rec, err := u.uploader.Save(ctx.Request.Context(), userID, bucket, header.Filename, file)
	if err != nil {
		utils.Fail(ctx, codeUpload, err)
		return
	}
	utils.Success(ctx, gin.H{"id": rec.ID, "url": rec.URL, "content_type": rec.ContentType, "size": rec.Size})
}

// List returns the caller's uploads.
func (u *UploadController) List(ctx *gin.Context) {
	userID, ok := requireUser(ctx, codeUpload)
	if !ok {
		return
	}
	files, err := u.uploader.List(ctx.Request.Context(), userID)
	if err != nil {
		utils.Fail(ctx, codeUpload, err)
		return
	}
	utils.Success(ctx, gin.H{"files": files})
}

func (u *UploadController) Delete(ctx *gin.Context) {
	userID, ok := requireUser(ctx, codeUpload)
	if !ok {
		return
	}
	id, ok := paramID(ctx, "id", codeUpload)
	if !ok {
		return
	}
	if err := u.uploader.Delete(ctx.Request.Context(), userID, id); err != nil {
		utils.Fail(ctx, codeUpload, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "deleted"})
}

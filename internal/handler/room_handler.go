/*
Package handler provides HTTP handler functions for the room listing and cover uploads.
*/
package handler

import (
	"net/http"

	"signalroom/internal/app/storage"
	"signalroom/internal/pkg/errs"
	"signalroom/internal/pkg/logx"
	"signalroom/internal/pkg/req"
	"signalroom/internal/pkg/resp"
)

// HandleListRooms returns every open room as a bare JSON array of {id, name, cover}.
func HandleListRooms(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondJSON(w, r, http.StatusOK, deps.Manager.Rooms())
	}
}

// HandlePresignCover issues a presigned upload URL for a room cover image and
// the URL the host should advertise as the room's cover.
func HandlePresignCover(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Covers == nil {
			resp.RespondError(w, r, errs.NewError(errs.ErrStorageDisabled))
			return
		}

		var input storage.CoverUploadRequest
		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		upload, customErr := deps.Covers.IssueUpload(r.Context(), input)
		if customErr != nil {
			logx.Warn("Cover presign rejected.", "code", customErr.Code, "file_name", input.FileName)
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, upload)
	}
}

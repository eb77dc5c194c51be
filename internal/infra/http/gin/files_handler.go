package ginserver

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"

	gin "github.com/gin-gonic/gin"
)

type FileOpener interface {
	Open(key string) (*os.File, error)
}

type FilesHandler struct {
	Store FileOpener
}

func (h FilesHandler) Serve(c *gin.Context) {
	key := strings.TrimLeft(c.Param("key"), "/")
	f, err := h.Store.Open(key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}
	http.ServeContent(c.Writer, c.Request, path.Base(key), info.ModTime(), f)
}

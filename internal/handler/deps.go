package handler

import (
	"edulive/internal/app/hub"
	"edulive/internal/app/storage"
	"edulive/internal/app/store"
	"edulive/internal/configs"
)

type AppDeps struct {
	Manager    *hub.Manager
	Config     *configs.AppConfig
	Store      *store.Store
	Recordings storage.RecordingStorage
}

package main

import (
	"log/slog"
	"os"

	"github.com/zhonghao-hub/Database/server"
)

func main() {

	engine, err := NewStorageEngine("database.db", "database.log")

	if err != nil {
		slog.Error(err.Error(), "msg", "failed to initialize storage engine")
		os.Exit(1)
	}

	dbServer, err := server.NewServer(":6380", engine.Index())

	if err != nil {
		slog.Error(err.Error(), "msg", "failed to start server")
		os.Exit(1)
	}

	dbServer.Run()

	if err := engine.Close(); err != nil {
		slog.Error(err.Error(), "msg", "error while closing storage engine")
	}
}

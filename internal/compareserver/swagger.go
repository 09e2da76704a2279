package compareserver

//go:generate swag init -g internal/compareserver/server.go -o internal/compareserver/docs

// @title SmartUI Comparison Server API
// @version 0.1
// @description Local development comparison server for the SmartUI snapshot capture client.
// @BasePath /

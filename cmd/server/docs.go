package main

//go:generate swag init -g cmd/server/main.go -o docs

// @title           Strategy Hub API
// @version         0.1.0
// @description     Trading strategies with buy/sell conditions and momentum backtests.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

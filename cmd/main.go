package main

import (
	"github.com/huongnv75/customer-orders/internal/app"
	"github.com/huongnv75/customer-orders/internal/config"
)

func main() {
	config.MustInit()
	app.MustNewApp().Run()
}

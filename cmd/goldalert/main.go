package main

import "github.com/xbleey/gold-price-alert/internal/cli"

func main() {
	cli.Execute()
}

package main

import "helpfinder/cmd"

// @title                       HelpFinder API
// @version                     1.0
// @description                 Local services marketplace: tasks, bids, contracts.
// @BasePath                    /api/v1
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	cmd.Execute()
}

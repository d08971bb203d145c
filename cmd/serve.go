package cmd

import (
	"LoudGate/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动LoudGate服务器",
	Long:  `启动LoudGate母带处理系统的HTTP服务器，对编排层提供任务提交与查询API`,
	Run: func(cmd *cobra.Command, args []string) {
		initRuntime()
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

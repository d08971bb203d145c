package cmd

import (
	"context"
	"fmt"
	"log"

	"LoudGate/config"
	"LoudGate/storage"

	"github.com/minio/minio-go/v7"
	"github.com/spf13/cobra"
)

var minioPrefix string

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "MinIO存储桶管理",
	Long:  `查看MinIO存储桶中已上传的母带文件，支持按前缀过滤。`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("开始连接MinIO服务器...")

		cfg := config.Load()
		fmt.Printf("MinIO配置: %s, Bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)

		if err := storage.InitMinio(cfg); err != nil {
			log.Fatalf("无法连接到MinIO: %v", err)
		}
		fmt.Println("MinIO连接成功！")

		client := storage.GetMinioClient()
		ctx := context.Background()

		var count int
		var totalSize int64
		for object := range client.ListObjects(ctx, cfg.MinioBucket, minio.ListObjectsOptions{
			Prefix:    minioPrefix,
			Recursive: true,
		}) {
			if object.Err != nil {
				log.Fatalf("列出对象失败: %v", object.Err)
			}
			fmt.Printf("  %10d  %s\n", object.Size, object.Key)
			count++
			totalSize += object.Size
		}

		fmt.Printf("\n共 %d 个对象, 总大小 %d 字节\n", count, totalSize)
	},
}

func init() {
	minioCmd.Flags().StringVar(&minioPrefix, "prefix", "", "仅列出指定前缀下的对象")
	rootCmd.AddCommand(minioCmd)
}

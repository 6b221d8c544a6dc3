package commands

import (
	"context"
	"fmt"
	"os"

	"tilesink/pkg/app"
	"tilesink/pkg/client"
	"tilesink/pkg/config"
	"tilesink/pkg/exporter"
	"tilesink/pkg/logging"
	"tilesink/pkg/service"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile    string
	remoteAddr string
	// 全局应用实例，供子命令使用
	TS *app.App
)

// remoteCapable 标记可以只靠 --remote 运行、不需要本地 App 的命令
const remoteCapable = "remote"

var rootCmd = &cobra.Command{
	Use:           "tilesink",
	Short:         "tilesink: validate and build Deep Zoom export sinks",
	SilenceUsage:  true,
	SilenceErrors: true,
	// PersistentPreRunE 会在所有子命令执行前运行
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger := logging.Default(viper.GetBool("verbose"))
		cmd.SetContext(logging.WithLogger(cmd.Context(), logger))

		// init 就是去创建环境的，跳过
		if cmd.Name() == "init" {
			return nil
		}
		if remoteAddr != "" && cmd.Annotations[remoteCapable] == "true" {
			return nil
		}

		var err error
		TS, err = app.NewApp(cmd.Context(), logger)
		if err != nil {
			return fmt.Errorf("failed to initialize tilesink: %w\n(Did you run 'tilesink init'?)", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if TS == nil {
			return nil
		}
		err := TS.Close()
		TS = nil
		return err
	},
}

// Execute 是入口
func Execute() error {
	rootCmd.SetContext(context.Background())
	err := rootCmd.Execute()
	if err != nil {
		log.Error(err)
	}
	return err
}

// newBackend 根据 --remote 选择本地或远程执行
// 返回的 closer 必须调用
func newBackend() (exporter.Backend, func() error, error) {
	if remoteAddr != "" {
		c, err := client.NewSinkClient(remoteAddr)
		if err != nil {
			return nil, nil, err
		}
		return exporter.NewRemote(c.Sink), c.Close, nil
	}
	if TS == nil {
		return nil, nil, fmt.Errorf("app not initialized")
	}
	return exporter.NewLocal(service.NewExportService(TS)), func() error { return nil }, nil
}

func init() {
	// 在初始化时，加载配置
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./.tilesink/config.yaml)")
	flags.StringVar(&remoteAddr, "remote", "", "address of a tilesink-server; plan/create/jobs run there")

	// 既可以在 yaml 里写，也可以用参数覆盖
	flags.String("storage-path", "", "Directory to write pyramids into")
	flags.BoolP("verbose", "v", false, "Enable debug logging")
	for key, name := range map[string]string{
		"storage.path": "storage-path",
		"verbose":      "verbose",
	} {
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			fmt.Println("Failed to bind flag:", err)
			os.Exit(1)
		}
	}
}

// initConfig 读取配置文件和环境变量
func initConfig() {
	if err := config.Load(cfgFile); err != nil {
		fmt.Println("Config error:", err)
		os.Exit(1)
	}
}

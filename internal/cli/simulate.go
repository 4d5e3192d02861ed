package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"trip-guardian/internal/app"
)

var (
	simulateLat       float64
	simulateLng       float64
	simulateSpeed     float64
	simulateDestName  string
	simulateDestLat   float64
	simulateDestLng   float64
	simulateDeparture string
	simulateMode      string
	simulateProvider  string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "模拟一条位置样本并完整触发告警管线",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateDestName == "" || simulateDeparture == "" {
			return errors.New("--dest 与 --departure 必须提供")
		}

		opts := app.SimulateOptions{
			Lat:       simulateLat,
			Lng:       simulateLng,
			SpeedKmh:  simulateSpeed,
			DestName:  simulateDestName,
			DestLat:   simulateDestLat,
			DestLng:   simulateDestLng,
			Departure: simulateDeparture,
			Mode:      simulateMode,
			Provider:  simulateProvider,
		}

		return getApp().SimulateAlert(cmd.Context(), opts)
	},
}

func init() {
	simulateCmd.Flags().Float64Var(&simulateLat, "lat", 0, "当前纬度")
	simulateCmd.Flags().Float64Var(&simulateLng, "lng", 0, "当前经度")
	simulateCmd.Flags().Float64Var(&simulateSpeed, "speed", 20, "当前速度 (km/h)")
	simulateCmd.Flags().StringVar(&simulateDestName, "dest", "", "连接点名称")
	simulateCmd.Flags().Float64Var(&simulateDestLat, "dest-lat", 0, "连接点纬度")
	simulateCmd.Flags().Float64Var(&simulateDestLng, "dest-lng", 0, "连接点经度")
	simulateCmd.Flags().StringVar(&simulateDeparture, "departure", "", "发车时间 HH:MM")
	simulateCmd.Flags().StringVar(&simulateMode, "mode", "train", "交通方式 (train/flight/bus/metro/ferry/rideshare)")
	simulateCmd.Flags().StringVar(&simulateProvider, "provider", "", "承运方名称")
}

package seed

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/sysu-ecnc-dev/shift-coordinator/backend/internal/config"
	"github.com/sysu-ecnc-dev/shift-coordinator/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-coordinator/backend/internal/repository"
	"github.com/sysu-ecnc-dev/shift-coordinator/backend/internal/service"
	"github.com/sysu-ecnc-dev/shift-coordinator/backend/internal/utils"
)

// nopDispatcher 让种子数据生成不依赖消息队列。
type nopDispatcher struct{}

func (nopDispatcher) Dispatch(msg *domain.NotificationMessage) {}

// SeedDemoData 生成一批演示数据：若干员工、两周的班表和班次。
// 班次通过 service 层写入，冲突标记和生产环境一样在写入时计算，
// 其中故意安排了一组时间重叠的班次，方便演示冲突汇总。
func SeedDemoData(repo *repository.Repository, cfg *config.Config) {
	tenant, err := repo.GetTenantByName(cfg.InitialTenant.Name)
	if err != nil {
		tenant = &domain.Tenant{Name: cfg.InitialTenant.Name}
		if err := repo.CreateTenant(tenant); err != nil {
			slog.Error("无法创建演示租户", "error", err)
			return
		}
	}

	// 插入演示员工
	employees := []*domain.Employee{}
	for i := 0; i < 12; i++ {
		employee, err := utils.GenerateRandomEmployee(tenant.ID, cfg.Seed.Employee.Password, cfg.Email.UserDomain)
		if err != nil {
			slog.Error("无法生成随机员工", "error", err)
			continue
		}
		if err := repo.CreateEmployee(employee); err != nil {
			slog.Error("无法插入员工", "error", err)
			continue
		}
		employees = append(employees, employee)
	}
	if len(employees) == 0 {
		slog.Error("没有插入任何员工，终止")
		return
	}
	slog.Info("插入员工成功", "count", len(employees))

	svc := service.NewService(repo, repo, repo, repo, nopDispatcher{})

	// 两周的班表，从下周一开始
	now := time.Now()
	weekday := int(now.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	nextMonday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 8-weekday)

	for week := 0; week < 2; week++ {
		startDate := nextMonday.AddDate(0, 0, week*7)
		schedule, err := svc.Schedules.Create(tenant.ID, service.CreateScheduleInput{
			Title:     fmt.Sprintf("演示班表 %s", startDate.Format("2006-01-02")),
			StartDate: startDate,
			EndDate:   startDate.AddDate(0, 0, 6),
			Notes:     "由种子工具生成",
		})
		if err != nil {
			slog.Error("无法创建演示班表", "error", err)
			continue
		}

		shiftCount := 0
		for day := 0; day < 7; day++ {
			for slot := 0; slot < 3; slot++ {
				start, end := utils.GenerateRandomShiftWindow(startDate.AddDate(0, 0, day))
				employee := employees[(day*3+slot)%len(employees)]
				if _, err := svc.Shifts.Create(tenant.ID, schedule.ID, service.CreateShiftInput{
					StartTime:  start,
					EndTime:    end,
					Role:       employee.Role,
					EmployeeID: &employee.ID,
				}); err != nil {
					slog.Error("无法插入班次", "error", err)
					continue
				}
				shiftCount++
			}
		}

		// 第一周故意给第一位员工安排一组重叠的班次
		if week == 0 {
			overlapDay := startDate.AddDate(0, 0, 2)
			first := employees[0]
			windows := [][2]int{{9, 13}, {11, 15}}
			for _, w := range windows {
				start := time.Date(overlapDay.Year(), overlapDay.Month(), overlapDay.Day(), w[0], 0, 0, 0, overlapDay.Location())
				end := time.Date(overlapDay.Year(), overlapDay.Month(), overlapDay.Day(), w[1], 0, 0, 0, overlapDay.Location())
				if _, err := svc.Shifts.Create(tenant.ID, schedule.ID, service.CreateShiftInput{
					StartTime:  start,
					EndTime:    end,
					Role:       first.Role,
					EmployeeID: &first.ID,
				}); err != nil {
					slog.Error("无法插入重叠班次", "error", err)
					continue
				}
				shiftCount++
			}
		}

		slog.Info("插入演示班表成功", "schedule_id", schedule.ID, "shift_count", shiftCount)
	}
}

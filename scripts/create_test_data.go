package main

import (
	"context"
	"fmt"
	"log"

	"solartrack/internal/config"
	"solartrack/internal/database"
	"solartrack/internal/model"
	"solartrack/internal/util"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Seeds a development database with a couple of sites, one account per
// role and a handful of faults so the API has something to serve.
func main() {
	ctx := context.Background()
	cfg := config.NewConfig()

	db := database.NewDatabase()
	if err := db.Connect(ctx, cfg.Database.DSN()); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("sifre123"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	siteA, err := db.CreateSite(ctx, database.CreateSiteParams{Name: "Konya GES"})
	if err != nil {
		log.Fatalf("Failed to create site: %v", err)
	}
	siteB, err := db.CreateSite(ctx, database.CreateSiteParams{Name: "Ankara GES"})
	if err != nil {
		log.Fatalf("Failed to create site: %v", err)
	}
	fmt.Printf("Created sites: %s, %s\n", siteA.Name, siteB.Name)

	seedUsers := []database.CreateUserParams{
		{Email: "yonetici@solartrack.dev", Role: model.RoleManager, Name: "Zeynep Yılmaz"},
		{Email: "muhendis@solartrack.dev", Role: model.RoleEngineer, Name: "Murat Aksoy"},
		{Email: "tekniker@solartrack.dev", Role: model.RoleTechnician, Name: "Ali Demir"},
		{Email: "bekci@solartrack.dev", Role: model.RoleGuard, Name: "Hasan Kaya"},
		{
			Email:   "musteri@solartrack.dev",
			Role:    model.RoleCustomer,
			Name:    "Ayşe Çelik",
			Company: util.Some("Çelik Enerji A.Ş."),
			SiteIDs: []uuid.UUID{siteA.ID},
		},
	}

	users := make(map[model.Role]model.User, len(seedUsers))
	for _, params := range seedUsers {
		params.PasswordHash = string(hashedPassword)
		user, err := db.CreateUser(ctx, params)
		if err != nil {
			log.Printf("Failed to create user %s: %v", params.Email, err)
			continue
		}
		users[user.Role] = user
		fmt.Printf("Created user: %s (%s)\n", user.Name, user.Email)
	}

	technician := users[model.RoleTechnician]
	engineer := users[model.RoleEngineer]

	seedFaults := []database.CreateFaultParams{
		{
			Title:       "İnvertör 3 arızası",
			Description: "İnvertör 3 sabah saatlerinde devre dışı kaldı.",
			Location:    "Dizi 2, İnvertör 3",
			SiteID:      siteA.ID,
			Status:      model.FaultStatusOpen,
			Priority:    model.PriorityUrgent,
			CreatedBy:   engineer.ID,
			AssignedTo:  util.Some(technician.ID),
		},
		{
			Title:       "Panel camı çatlak",
			Description: "Dolu sonrası A12 panelinde çatlak tespit edildi.",
			Location:    "Dizi 1, Panel A12",
			SiteID:      siteA.ID,
			Status:      model.FaultStatusInProgress,
			Priority:    model.PriorityMedium,
			CreatedBy:   engineer.ID,
			AssignedTo:  util.Some(technician.ID),
		},
		{
			Title:       "Kablo bağlantısı gevşek",
			Description: "DC toplama kutusunda gevşek bağlantı.",
			Location:    "Toplama kutusu 5",
			SiteID:      siteB.ID,
			Status:      model.FaultStatusPending,
			Priority:    model.PriorityLow,
			CreatedBy:   engineer.ID,
		},
	}

	for _, params := range seedFaults {
		fault, err := db.CreateFault(ctx, params)
		if err != nil {
			log.Printf("Failed to create fault %q: %v", params.Title, err)
			continue
		}
		fmt.Printf("Created fault: %s (%s)\n", fault.Title, fault.ShortID())
	}

	fmt.Println("\nSeed data created. All accounts use password: sifre123")
}

package models

import (
	"database/sql"
	"log"
	"time"

	"github.com/francisoalfonso/LaLigaFantasySpain-sub003/config"

	_ "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var DB *sql.DB
var GormDB *gorm.DB

// InitDB opens the MySQL pool and runs the schema migration.
func InitDB() {
	if config.AppConfig == nil {
		log.Fatal("config.AppConfig is nil, call config.InitConfig first")
	}
	dsn := config.AppConfig.MySQL.DSN
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		log.Fatalf("open database failed: %v", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		log.Fatalf("database ping failed: %v", err)
	}

	DB = db
	GormDB, err = gorm.Open(mysql.New(mysql.Config{
		Conn: DB,
	}), &gorm.Config{})
	if err != nil {
		log.Fatalf("gorm init failed: %v", err)
	}

	if err := GormDB.AutoMigrate(&VideoJob{}, &Segment{}); err != nil {
		log.Fatalf("auto migrate failed: %v", err)
	}
	log.Println("database connected (Native SQL + GORM)")
}
